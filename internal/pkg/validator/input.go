package validator

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"filedrop/internal/pkg/errors"
)

const (
	DefaultIcon       = "sparkles"
	FullNameMaxLength = 100
)

var icons = []string{
	"sparkles", "upload", "download", "file-text", "folder", "image",
	"video", "music", "code", "mail", "send", "inbox",
}

// Title trims and bounds an inbox title.
func Title(title string, maxLen int) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", errors.NewValidation("title", "Title is required")
	}
	if utf8.RuneCountInString(title) > maxLen {
		return "", errors.NewValidation("title", fmt.Sprintf("Title must be %d characters or less", maxLen))
	}
	return title, nil
}

// Description trims the input; blank descriptions are stored as NULL.
func Description(desc *string) *string {
	if desc == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*desc)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func SubmitterName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errors.NewValidation("name", "Please enter your name")
	}
	return name, nil
}

func FullName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > FullNameMaxLength {
		return "", errors.NewValidation("full_name", "Name must be 100 characters or less")
	}
	return name, nil
}

// Icon returns the icon to store, defaulting blanks.
func Icon(icon string) (string, error) {
	if icon == "" {
		return DefaultIcon, nil
	}
	for _, known := range icons {
		if icon == known {
			return icon, nil
		}
	}
	return "", errors.NewValidation("icon", "Unknown icon")
}

func Icons() []string {
	out := make([]string, len(icons))
	copy(out, icons)
	return out
}
