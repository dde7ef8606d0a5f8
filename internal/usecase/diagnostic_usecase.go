package usecase

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/fpsos/fpsbot/internal/domain"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

var (
	ErrInvalidFormat      = errors.New("invalid diagnostic format")
	ErrMissingField       = errors.New("missing required field")
	ErrAttachmentTooLarge = errors.New("attachment too large")
)

// MissingFieldError matches ErrMissingField and names the absent field.
type MissingFieldError struct {
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: %s", ErrMissingField, e.Field)
}

func (e *MissingFieldError) Is(target error) bool {
	return target == ErrMissingField
}

type AttachmentFetcher interface {
	Fetch(ctx context.Context, url string, limit int64) ([]byte, error)
}

type Recommendation struct {
	Tier          domain.Tier
	PackageName   string
	PriceLabel    string
	Reason        string
	HealthScore   int
	CriticalCount int
	WarningCount  int
}

type DiagnosticResult struct {
	Report         domain.Report
	Recommendation Recommendation
	Diagnostic     domain.Diagnostic
}

type DiagnosticUsecase struct {
	users       domain.UserRepository
	diagnostics domain.DiagnosticRepository
	fetcher     AttachmentFetcher
	maxBytes    int64
	logger      *zap.Logger
}

func NewDiagnosticUsecase(users domain.UserRepository, diagnostics domain.DiagnosticRepository, fetcher AttachmentFetcher, maxBytes int64, logger *zap.Logger) *DiagnosticUsecase {
	return &DiagnosticUsecase{
		users:       users,
		diagnostics: diagnostics,
		fetcher:     fetcher,
		maxBytes:    maxBytes,
		logger:      logger,
	}
}

// IsDiagnosticAttachment reports whether an upload should be scored.
func IsDiagnosticAttachment(att domain.Attachment) bool {
	return strings.HasSuffix(strings.ToLower(att.Filename), ".json")
}

func (u *DiagnosticUsecase) AnalyzeAttachment(ctx context.Context, owner domain.ChatUser, att domain.Attachment) (*DiagnosticResult, error) {
	if u.maxBytes > 0 && int64(att.Size) > u.maxBytes {
		return nil, ErrAttachmentTooLarge
	}
	raw, err := u.fetcher.Fetch(ctx, att.URL, u.maxBytes)
	if err != nil {
		return nil, fmt.Errorf("fetch attachment %s: %w", att.Filename, err)
	}
	return u.Analyze(ctx, owner, raw)
}

// Analyze scores a raw report and records it. A report that fails to parse
// writes nothing.
func (u *DiagnosticUsecase) Analyze(ctx context.Context, owner domain.ChatUser, raw []byte) (*DiagnosticResult, error) {
	report, err := ParseReport(raw)
	if err != nil {
		return nil, err
	}
	rec := Score(len(report.Critical), len(report.Warnings))

	if err := u.users.Upsert(ctx, &domain.User{ExternalID: owner.ID, Username: owner.Name()}); err != nil {
		return nil, fmt.Errorf("register user: %w", err)
	}

	diagnostic := domain.Diagnostic{
		UserID:         owner.ID,
		RawReport:      string(raw),
		CriticalCount:  rec.CriticalCount,
		WarningCount:   rec.WarningCount,
		Recommendation: rec.Tier,
	}
	if err := u.diagnostics.Create(ctx, &diagnostic); err != nil {
		return nil, fmt.Errorf("save diagnostic: %w", err)
	}

	if err := u.users.IncrementDiagnostics(ctx, owner.ID); err != nil {
		u.logger.Warn("failed to bump diagnostic counter", zap.String("user_id", owner.ID), zap.Error(err))
	}

	u.logger.Info("diagnostic saved",
		zap.String("user_id", owner.ID),
		zap.String("recommendation", string(rec.Tier)),
		zap.Int("critical", rec.CriticalCount),
		zap.Int("warnings", rec.WarningCount),
	)

	return &DiagnosticResult{Report: report, Recommendation: rec, Diagnostic: diagnostic}, nil
}

func (u *DiagnosticUsecase) Latest(ctx context.Context, userID string) (*domain.Diagnostic, error) {
	return u.diagnostics.Latest(ctx, userID)
}

// Score applies the recommendation table. The first matching rule wins.
func Score(critical, warnings int) Recommendation {
	rec := Recommendation{
		CriticalCount: critical,
		WarningCount:  warnings,
		HealthScore:   HealthScore(critical, warnings),
	}

	switch {
	case critical >= 2:
		rec.Tier = domain.TierExtreme
		rec.Reason = fmt.Sprintf("%d critical issues detected - requires deep BIOS optimization", critical)
	case critical >= 1 || warnings >= 3:
		rec.Tier = domain.TierFull
		rec.Reason = fmt.Sprintf("%d critical + %d warnings - comprehensive optimization needed", critical, warnings)
	case warnings >= 1:
		rec.Tier = domain.TierQuick
		rec.Reason = fmt.Sprintf("%d minor issues - quick fixes available", warnings)
	default:
		rec.Tier = domain.RecommendationGood
		rec.PackageName = "Your System Looks Great!"
		rec.PriceLabel = "No service needed"
		rec.Reason = "No critical issues detected - you're good to go!"
		return rec
	}

	pkg, _ := domain.PackageFor(rec.Tier)
	rec.PackageName = pkg.Name
	rec.PriceLabel = domain.PriceLabel(pkg.PriceAED)
	return rec
}

// HealthScore is clamped at zero and not capped above.
func HealthScore(critical, warnings int) int {
	score := 100 - (critical*20 + warnings*5)
	if score < 0 {
		return 0
	}
	return score
}

type reportDocument struct {
	System *systemDocument `json:"system"`
	Issues *issuesDocument `json:"issues"`
}

type systemDocument struct {
	CPU     json.RawMessage `json:"cpu"`
	GPU     json.RawMessage `json:"gpu"`
	RAM     json.RawMessage `json:"ram"`
	Network json.RawMessage `json:"network"`
}

type issuesDocument struct {
	Critical *[]issueText `json:"critical" validate:"required"`
	Warnings *[]issueText `json:"warnings" validate:"required"`
}

// issueText accepts any JSON value; non-strings keep their JSON text.
type issueText string

func (t *issueText) UnmarshalJSON(data []byte) error {
	*t = issueText(scalarText(data))
	return nil
}

var reportValidator = newReportValidator()

func newReportValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})
	return v
}

// ParseReport decodes an uploaded report. The top level must be a JSON object;
// an absent issues section counts as no issues, but a present one must carry
// both lists.
func ParseReport(raw []byte) (domain.Report, error) {
	trimmed := bytes.TrimSpace(bytes.TrimPrefix(raw, []byte("\xef\xbb\xbf")))
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return domain.Report{}, ErrInvalidFormat
	}

	var doc reportDocument
	if err := json.Unmarshal(trimmed, &doc); err != nil {
		return domain.Report{}, fmt.Errorf("%w: %v", ErrInvalidFormat, err)
	}

	var report domain.Report
	if doc.System != nil {
		report.System = domain.SystemInfo{
			CPU:     scalarText(doc.System.CPU),
			GPU:     scalarText(doc.System.GPU),
			RAM:     scalarText(doc.System.RAM),
			Network: scalarText(doc.System.Network),
		}
	}

	if doc.Issues == nil {
		return report, nil
	}
	if err := reportValidator.Struct(doc.Issues); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return domain.Report{}, &MissingFieldError{Field: verrs[0].Field()}
		}
		return domain.Report{}, err
	}

	report.Critical = issueStrings(*doc.Issues.Critical)
	report.Warnings = issueStrings(*doc.Issues.Warnings)
	return report, nil
}

func issueStrings(items []issueText) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, string(item))
	}
	return out
}

func scalarText(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
