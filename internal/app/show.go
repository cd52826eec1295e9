package app

import (
	"context"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"hotel-price-watch/internal/storage"
)

// Show prints recent history rows for one target.
func (a *App) Show(ctx context.Context, opts ShowOptions) error {
	st, err := a.openStores(ctx)
	if err != nil {
		return err
	}
	if st.close != nil {
		defer st.close()
	}

	key := storage.TargetKey(opts.Target)
	records, err := st.history.ListRecentHistory(ctx, key, opts.Limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Fprintln(os.Stdout, "no history found for "+key)
		return nil
	}

	writer := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(writer, "Time (UTC)\tChosen\tSource\tAmounts\tURL")

	for _, record := range records {
		price := ""
		if record.Price != nil {
			price = record.Price.StringFixed(2)
		}
		fmt.Fprintf(
			writer,
			"%s\t%s\t%s\t%s\t%s\n",
			record.Timestamp.UTC().Format(time.RFC3339),
			price,
			record.Source,
			storage.FormatAmounts(record.Amounts),
			sanitizeInline(record.URL),
		)
	}

	writer.Flush()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
