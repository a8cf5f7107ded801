package quota

import (
	"fmt"

	"filedrop/internal/pkg/errors"
	"filedrop/internal/platform/models"
)

const (
	MaxBasicInboxes   = 10
	BasicStorageLimit = 200 * 1024 * 1024
	MaxFileSize       = 50 * 1024 * 1024
	TitleMaxLength    = 60
)

// CanCreateInbox returns nil when a creator on tier may add another inbox.
func CanCreateInbox(tier models.Tier, currentInboxCount int64) error {
	if tier == models.TierUnlimited {
		return nil
	}
	if currentInboxCount >= MaxBasicInboxes {
		return &errors.QuotaExceededError{
			Resource: "inboxes",
			Limit:    MaxBasicInboxes,
			Message:  fmt.Sprintf("Basic plan is limited to %d inboxes. Upgrade to create more.", MaxBasicInboxes),
		}
	}
	return nil
}

func CanUseGatedFeature(tier models.Tier, feature string) error {
	if tier != models.TierUnlimited {
		return &errors.FeatureGatedError{Feature: feature}
	}
	return nil
}

func IsWithinStorageLimit(tier models.Tier, usedBytes int64) error {
	if tier == models.TierUnlimited {
		return nil
	}
	if usedBytes >= BasicStorageLimit {
		return &errors.QuotaExceededError{
			Resource: "storage",
			Limit:    BasicStorageLimit,
			Message:  "Storage limit reached. Delete files or upgrade to continue receiving submissions.",
		}
	}
	return nil
}

func CheckFileSize(name string, size int64) error {
	if size > MaxFileSize {
		return &errors.FileTooLargeError{FileName: name, Size: size, Limit: MaxFileSize}
	}
	return nil
}

type Limits struct {
	MaxInboxes   int64
	StorageBytes int64
}

// LimitsFor reports the caps of a tier; zero means unbounded.
func LimitsFor(tier models.Tier) Limits {
	if tier == models.TierUnlimited {
		return Limits{}
	}
	return Limits{MaxInboxes: MaxBasicInboxes, StorageBytes: BasicStorageLimit}
}
