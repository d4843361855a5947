// Package validation checks badge requests before any rendering, upload or
// ledger work happens. Checks run in a fixed order and the first failure wins.
package validation

import (
	"fmt"
	"strings"
	"unicode"

	"badgeworks/internal/badge/models"
	id "badgeworks/pkg/domain"
	pkgvalidation "badgeworks/pkg/validation"
)

// Catalog is the key-code membership check the validator needs.
type Catalog interface {
	Contains(code id.KeyCode) bool
}

// SubjectRange is an inclusive subject id range.
type SubjectRange struct {
	Min id.SubjectID
	Max id.SubjectID
}

// Contains reports whether s lies within the range.
func (r SubjectRange) Contains(s id.SubjectID) bool {
	return s >= r.Min && s <= r.Max
}

// DefaultSubjectRange is the range used when none is configured.
var DefaultSubjectRange = SubjectRange{Min: 100, Max: 151}

// Validator is pure: it holds only immutable configuration.
type Validator struct {
	catalog Catalog
	subject SubjectRange
}

// New constructs a validator over an immutable catalog and subject range.
func New(catalog Catalog, subject SubjectRange) *Validator {
	return &Validator{catalog: catalog, subject: subject}
}

// Validate returns nil or a validation error carrying a rejection reason.
// Order: presence, key code, email, subject id.
func (v *Validator) Validate(req models.BadgeRequest) error {
	if fe := pkgvalidation.First(req); fe != nil {
		return models.Reject(models.ReasonMissingField, fe.Message())
	}
	if v.catalog == nil || !v.catalog.Contains(req.KeyCode) {
		return models.Reject(models.ReasonInvalidKeyCode,
			fmt.Sprintf("unknown key code %q", req.KeyCode))
	}
	if !ValidEmail(req.Email) {
		return models.Reject(models.ReasonInvalidEmailFormat, "email must look like local@domain.tld")
	}
	if !v.subject.Contains(req.Subject()) {
		return models.Reject(models.ReasonSubjectIDOutOfRange,
			fmt.Sprintf("subject id must be between %d and %d", v.subject.Min, v.subject.Max))
	}
	return nil
}

// ValidEmail accepts local@domain.tld: exactly one '@', a non-empty local
// part, a domain with at least one '.', no empty labels and no whitespace.
func ValidEmail(s string) bool {
	if strings.IndexFunc(s, unicode.IsSpace) >= 0 {
		return false
	}
	local, domain, ok := strings.Cut(s, "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return false
	}
	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if l == "" {
			return false
		}
	}
	return true
}
