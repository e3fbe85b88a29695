// Package export flattens harvested records into the CSV output file.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/mferov/klexport/internal/harvest"
)

// Columns is the fixed output schema, in order.
var Columns = []string{
	"campaign_id",
	"campaign_name",
	"subject",
	"status",
	"send_time",
	"from_label",
	"from_email",
	"preview_text",
	"recipients",
	"delivered",
	"bounced",
	"opens",
	"opens_unique",
	"open_rate",
	"clicks",
	"clicks_unique",
	"click_rate",
}

// WriteCSV writes records to path in arrival order with a header row.
func WriteCSV(path string, records []harvest.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(Columns); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, r := range records {
		if err := w.Write(row(r)); err != nil {
			return fmt.Errorf("failed to write record %s: %w", r.CampaignID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return nil
}

func row(r harvest.Record) []string {
	return []string{
		r.CampaignID,
		r.CampaignName,
		r.Subject,
		r.Status,
		r.SendTime,
		r.FromLabel,
		r.FromEmail,
		r.PreviewText,
		strconv.FormatInt(r.Stats.Recipients, 10),
		strconv.FormatInt(r.Stats.Delivered, 10),
		strconv.FormatInt(r.Stats.Bounced, 10),
		strconv.FormatInt(r.Stats.Opens, 10),
		strconv.FormatInt(r.Stats.OpensUnique, 10),
		strconv.FormatFloat(r.Stats.OpenRate, 'f', -1, 64),
		strconv.FormatInt(r.Stats.Clicks, 10),
		strconv.FormatInt(r.Stats.ClicksUnique, 10),
		strconv.FormatFloat(r.Stats.ClickRate, 'f', -1, 64),
	}
}
