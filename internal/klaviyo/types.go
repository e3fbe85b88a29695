package klaviyo

// CampaignsPage is one page of the campaign listing endpoint. The listing is
// a compound document: campaigns in Data, related campaign-message resources
// in Included, and the next page URL (if any) in Links.
type CampaignsPage struct {
	Data     []Campaign        `json:"data"`
	Included []IncludedMessage `json:"included"`
	Links    Links             `json:"links"`
}

// Campaign is one campaign resource from the listing endpoint.
type Campaign struct {
	Type          string             `json:"type"`
	ID            string             `json:"id"`
	Attributes    CampaignAttributes `json:"attributes"`
	Relationships Relationships      `json:"relationships"`
}

// CampaignAttributes holds the campaign fields we export. Timestamps stay as
// strings here; parsing happens at the filtering boundary.
type CampaignAttributes struct {
	Name      string `json:"name"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	SendTime  string `json:"send_time"`
}

// Relationships links a campaign to its message resources.
type Relationships struct {
	CampaignMessages RelationshipData `json:"campaign-messages"`
}

// RelationshipData is the list of resource references in a relationship.
type RelationshipData struct {
	Data []ResourceRef `json:"data"`
}

// ResourceRef identifies a related resource by type and id.
type ResourceRef struct {
	Type string `json:"type"`
	ID   string `json:"id"`
}

// TypeCampaignMessage is the resource type of message entries in the
// inclusion section.
const TypeCampaignMessage = "campaign-message"

// IncludedMessage is one entry of the inclusion section.
type IncludedMessage struct {
	Type       string            `json:"type"`
	ID         string            `json:"id"`
	Attributes MessageAttributes `json:"attributes"`
}

// MessageAttributes wraps the message content blob.
type MessageAttributes struct {
	Content MessageContent `json:"content"`
}

// MessageContent holds the message fields joined onto campaigns.
type MessageContent struct {
	Subject     string `json:"subject"`
	PreviewText string `json:"preview_text"`
	FromEmail   string `json:"from_email"`
	FromLabel   string `json:"from_label"`
}

// Links holds pagination links. Next is empty on the last page.
type Links struct {
	Next string `json:"next"`
}

// MetricsPage is one page of the metrics listing endpoint.
type MetricsPage struct {
	Data []Metric `json:"data"`
}

// Metric is one metric resource.
type Metric struct {
	Type       string           `json:"type"`
	ID         string           `json:"id"`
	Attributes MetricAttributes `json:"attributes"`
}

// MetricAttributes holds the metric fields we care about.
type MetricAttributes struct {
	Name string `json:"name"`
}

// ValuesReportRequest is the body of a campaign-values-report request.
type ValuesReportRequest struct {
	Data ValuesReportData `json:"data"`
}

// ValuesReportData is the resource object of a report request.
type ValuesReportData struct {
	Type       string                 `json:"type"`
	Attributes ValuesReportAttributes `json:"attributes"`
}

// ValuesReportAttributes scopes a report to one campaign and a statistic set.
type ValuesReportAttributes struct {
	Timeframe          Timeframe `json:"timeframe"`
	Filter             string    `json:"filter"`
	Statistics         []string  `json:"statistics"`
	ConversionMetricID string    `json:"conversion_metric_id"`
}

// Timeframe selects a named reporting window (e.g. "last_6_months").
type Timeframe struct {
	Key string `json:"key"`
}

// ValuesReportResponse is the body of a successful report response.
type ValuesReportResponse struct {
	Data ValuesReportResult `json:"data"`
}

// ValuesReportResult wraps the report result attributes.
type ValuesReportResult struct {
	Attributes ValuesReportResultAttributes `json:"attributes"`
}

// ValuesReportResultAttributes holds the report rows. An empty Results slice
// is a valid outcome (no sends in the window).
type ValuesReportResultAttributes struct {
	Results []ReportRow `json:"results"`
}

// ReportRow is one row of report results. Rates arrive as 0-1 fractions.
type ReportRow struct {
	Statistics map[string]float64 `json:"statistics"`
}
