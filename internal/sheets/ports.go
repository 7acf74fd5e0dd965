package sheets

import (
	"context"

	"monbudget/internal/core"
)

// Ports for reporting sinks.
type (
	// OverviewWriter exports the aggregate of one budget month.
	OverviewWriter interface {
		WriteMonthOverview(ctx context.Context, ov core.MonthOverview) error
	}

	// OverviewReader returns a previously exported month aggregate.
	OverviewReader interface {
		ReadMonthOverview(ctx context.Context, key core.MonthKey) (core.MonthOverview, error)
	}
)
