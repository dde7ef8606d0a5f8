package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/fpsos/fpsbot/internal/domain"
	"gopkg.in/yaml.v3"
)

var (
	ErrTagNotFound = errors.New("tag not found")
	ErrInvalidTag  = errors.New("invalid tag")
)

const maxTagSuggestions = 3

type TagSeed struct {
	Name    string `yaml:"name"`
	Content string `yaml:"content"`
}

type TagUsecase struct {
	tags domain.TagRepository
}

func NewTagUsecase(tags domain.TagRepository) *TagUsecase {
	return &TagUsecase{tags: tags}
}

// Lookup returns the tag and counts the hit.
func (u *TagUsecase) Lookup(ctx context.Context, name string) (*domain.Tag, error) {
	key := domain.NormalizeTagName(name)
	if key == "" {
		return nil, ErrTagNotFound
	}
	tag, err := u.tags.Get(ctx, key)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, ErrTagNotFound
		}
		return nil, err
	}
	return tag, nil
}

// Suggest lists up to three tag names containing the query.
func (u *TagUsecase) Suggest(ctx context.Context, query string) ([]string, error) {
	key := domain.NormalizeTagName(query)
	if key == "" {
		return nil, nil
	}
	names, err := u.tags.ListNames(ctx)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, name := range names {
		if strings.Contains(name, key) {
			out = append(out, name)
			if len(out) == maxTagSuggestions {
				break
			}
		}
	}
	return out, nil
}

func (u *TagUsecase) Save(ctx context.Context, name, content, createdBy string) (*domain.Tag, error) {
	key := domain.NormalizeTagName(name)
	content = strings.TrimSpace(content)
	if key == "" || strings.ContainsAny(key, " \t\n") || content == "" {
		return nil, ErrInvalidTag
	}
	tag := &domain.Tag{Name: key, Content: content, CreatedBy: createdBy}
	if err := u.tags.Upsert(ctx, tag); err != nil {
		return nil, err
	}
	return tag, nil
}

func (u *TagUsecase) Delete(ctx context.Context, name string) error {
	if err := u.tags.Delete(ctx, domain.NormalizeTagName(name)); err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return ErrTagNotFound
		}
		return err
	}
	return nil
}

func (u *TagUsecase) List(ctx context.Context) ([]string, error) {
	return u.tags.ListNames(ctx)
}

// Import upserts every tag in a YAML list of {name, content} entries and
// returns how many were written.
func (u *TagUsecase) Import(ctx context.Context, r io.Reader, createdBy string) (int, error) {
	var seeds []TagSeed
	if err := yaml.NewDecoder(r).Decode(&seeds); err != nil {
		if errors.Is(err, io.EOF) {
			return 0, nil
		}
		return 0, fmt.Errorf("decode tags: %w", err)
	}
	written := 0
	for i, seed := range seeds {
		if _, err := u.Save(ctx, seed.Name, seed.Content, createdBy); err != nil {
			return written, fmt.Errorf("tag %d (%q): %w", i, seed.Name, err)
		}
		written++
	}
	return written, nil
}

// ParseTagShortcut extracts the tag name from a "!name" message.
func ParseTagShortcut(content string) (string, bool) {
	content = strings.TrimSpace(content)
	if !strings.HasPrefix(content, "!") {
		return "", false
	}
	fields := strings.Fields(content[1:])
	if len(fields) == 0 {
		return "", false
	}
	return domain.NormalizeTagName(fields[0]), true
}
