package harvest

import "github.com/mferov/klexport/internal/klaviyo"

// Record is one campaign enriched with its message content and statistics.
// This is the engine's sole output type; records keep their listing arrival
// order. Message fields stay empty when no inclusion entry joined.
type Record struct {
	CampaignID   string
	CampaignName string
	Status       string
	CreatedAt    string
	SendTime     string

	// Joined from the inclusion section via MessageID.
	MessageID   string
	Subject     string
	PreviewText string
	FromEmail   string
	FromLabel   string

	Stats Stats
}

// Stats holds aggregated campaign metrics. The zero value is the degraded
// outcome for every stats failure path, so downstream code never branches on
// absence. Rates are percentages on a 0-100 scale.
type Stats struct {
	Recipients   int64
	Delivered    int64
	Bounced      int64
	Opens        int64
	OpensUnique  int64
	Clicks       int64
	ClicksUnique int64
	OpenRate     float64
	ClickRate    float64
}

// newRecord builds a Record stub from a listing campaign, extracting the
// message reference from the relationship section. When a campaign references
// several messages the first one in declaration order wins.
func newRecord(c klaviyo.Campaign) Record {
	r := Record{
		CampaignID:   c.ID,
		CampaignName: c.Attributes.Name,
		Status:       c.Attributes.Status,
		CreatedAt:    c.Attributes.CreatedAt,
		SendTime:     c.Attributes.SendTime,
	}
	if refs := c.Relationships.CampaignMessages.Data; len(refs) > 0 {
		r.MessageID = refs[0].ID
	}
	return r
}

// mergePage joins one page's inclusion entries onto its campaign stubs.
// An inclusion entry with no matching stub is dropped; when several entries
// match the same stub the last one in document order wins. The join runs
// page by page so memory stays bounded by a single page.
func mergePage(page *klaviyo.CampaignsPage) []Record {
	records := make([]Record, 0, len(page.Data))
	for _, c := range page.Data {
		records = append(records, newRecord(c))
	}
	for _, inc := range page.Included {
		if inc.Type != klaviyo.TypeCampaignMessage {
			continue
		}
		for i := range records {
			if records[i].MessageID != inc.ID || records[i].MessageID == "" {
				continue
			}
			content := inc.Attributes.Content
			records[i].Subject = content.Subject
			records[i].PreviewText = content.PreviewText
			records[i].FromEmail = content.FromEmail
			records[i].FromLabel = content.FromLabel
			break
		}
	}
	return records
}
