package quota

import (
	"math/rand"
	"regexp"

	"filedrop/internal/pkg/errors"
	"filedrop/internal/platform/models"
)

const (
	slugChars  = "abcdefghijklmnopqrstuvwxyz0123456789"
	SlugLength = 8
)

var slugPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// EffectiveSlug picks the slug an inbox is stored under. Only creators with the
// custom slug feature may choose one; everyone else gets generate(). generated
// reports which branch was taken so callers know whether a collision can be retried.
func EffectiveSlug(tier models.Tier, requested string, generate func() string) (slug string, generated bool, err error) {
	if requested != "" && CanUseGatedFeature(tier, errors.FeatureCustomSlug) == nil {
		if !ValidSlug(requested) {
			return "", false, errors.NewValidation("slug", "Slug can only contain lowercase letters, numbers, and hyphens")
		}
		return requested, false, nil
	}
	return generate(), true, nil
}

func ValidSlug(slug string) bool {
	return slugPattern.MatchString(slug)
}

func GenerateSlug() string {
	b := make([]byte, SlugLength)
	for i := range b {
		b[i] = slugChars[rand.Intn(len(slugChars))]
	}
	return string(b)
}
