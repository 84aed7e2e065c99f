package commands

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/de-tools/lakespend/pkg/models/domain"
	"github.com/de-tools/lakespend/pkg/services/budget"
	"github.com/de-tools/lakespend/pkg/services/tags"
	"github.com/spf13/cobra"
)

const commandTimeout = 5 * time.Minute

type Services struct {
	Tags   tags.Manager
	Budget budget.Manager
}

// Provider resolves the services once flags are parsed.
type Provider func(cmd *cobra.Command) (*Services, error)

func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithTimeout(ctx, commandTimeout)
}

// parseTags turns key=value flags into a tag map. A bare key maps to an empty value.
func parseTags(pairs []string) (domain.TagMap, error) {
	out := domain.TagMap{}
	for _, p := range pairs {
		key, value, _ := strings.Cut(p, "=")
		key = strings.TrimSpace(key)
		if key == "" {
			return nil, fmt.Errorf("%w: invalid tag %q, expected key=value", domain.ErrInvalidArgument, p)
		}
		out[key] = value
	}
	return out, nil
}

// parseEntries turns type:id flags into bulk entries. Types are checked per entry by
// the tag manager.
func parseEntries(values []string) ([]domain.BulkEntry, error) {
	out := make([]domain.BulkEntry, 0, len(values))
	for _, v := range values {
		kind, id, ok := strings.Cut(v, ":")
		if !ok || kind == "" || id == "" {
			return nil, fmt.Errorf("%w: invalid resource %q, expected type:id", domain.ErrInvalidArgument, v)
		}
		out = append(out, domain.BulkEntry{Type: kind, ID: id})
	}
	return out, nil
}

func parseThresholds(values []string) ([]float64, error) {
	out := make([]float64, 0, len(values))
	for _, v := range values {
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid threshold %q", domain.ErrInvalidArgument, v)
		}
		out = append(out, f)
	}
	return out, nil
}

func stringFlag(cmd *cobra.Command, name, value string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}

func floatFlag(cmd *cobra.Command, name string, value float64) *float64 {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	return &value
}
