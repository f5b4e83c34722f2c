package service

import (
	"context"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/ferranti/homeledger/cache"
)

func now() time.Time {
	return time.Now().UTC()
}

// invalidateFamilies clears the given key families from one namespace.
// Failures here can only come from a dead context; the write already
// succeeded, so log and keep clearing the remaining families.
func invalidateFamilies(ctx context.Context, logger *slog.Logger, ns cache.Namespace, families ...cache.FamilyKey) {
	for _, f := range families {
		if err := ns.InvalidateFamily(ctx, f); err != nil {
			logger.WarnContext(ctx, "cache invalidation failed",
				"family", f.Prefix(), "error", err)
		}
	}
}

func serviceLogger(logger *slog.Logger, component string) *slog.Logger {
	if logger == nil {
		logger = slog.Default()
	}
	return logger.With("component", component)
}

var hexColorRe = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

func validateRequired(field, value string) error {
	if strings.TrimSpace(value) == "" {
		return &ValidationError{Field: field, Reason: "must not be empty"}
	}
	return nil
}

func validateEmail(email string) error {
	if err := validateRequired("email", email); err != nil {
		return err
	}
	if !strings.Contains(email, "@") {
		return &ValidationError{Field: "email", Reason: "must be a valid address"}
	}
	return nil
}

func validateCurrency(code string) error {
	if len(code) != 3 {
		return &ValidationError{Field: "currency", Reason: "must be a 3-letter code"}
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return &ValidationError{Field: "currency", Reason: "must be an uppercase 3-letter code"}
		}
	}
	return nil
}

func validateColor(color string) error {
	if !hexColorRe.MatchString(color) {
		return &ValidationError{Field: "color", Reason: "must be a #rrggbb hex string"}
	}
	return nil
}

func validateQuantity(quantity int64) error {
	if quantity < 1 {
		return &ValidationError{Field: "quantity", Reason: "must be at least 1"}
	}
	return nil
}

func validateRole(role string) error {
	return validateRequired("role", role)
}
