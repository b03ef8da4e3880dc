package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"
)

const maxBatchNumberAttempts = 20

// BatchNumber formats BATCH-<PREFIX>-<YYYYMMDDhhmmss>, where PREFIX is the
// first four letters or digits of the item name, upper-cased.
func BatchNumber(itemName string, at time.Time) string {
	var prefix strings.Builder
	n := 0
	for _, r := range itemName {
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			continue
		}
		prefix.WriteRune(unicode.ToUpper(r))
		if n++; n == 4 {
			break
		}
	}
	if n == 0 {
		prefix.WriteString("ITEM")
	}
	return fmt.Sprintf("BATCH-%s-%s", prefix.String(), at.UTC().Format("20060102150405"))
}

// nextBatchNumber returns an unused batch number. Two receipts of the same
// item within one second get -2, -3, ... suffixes.
func (s *InventoryService) nextBatchNumber(ctx context.Context, itemName string) (string, error) {
	base := BatchNumber(itemName, s.now())
	candidate := base
	for n := 2; n <= maxBatchNumberAttempts+1; n++ {
		exists, err := s.repos.Batches.NumberExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("check batch number: %w", err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = fmt.Sprintf("%s-%d", base, n)
	}
	return "", fmt.Errorf("no free batch number for %s", base)
}
