// Package report analyzes an exported campaign CSV: overall engagement
// totals, best and worst performers, and subject-line patterns among
// above-average campaigns.
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/mferov/klexport/internal/harvest"
)

// WordCount is a subject-line word and how often it appears.
type WordCount struct {
	Word  string
	Count int
}

// Summary is the analysis of one exported dataset.
type Summary struct {
	Campaigns    int
	Recipients   int64
	Delivered    int64
	Bounced      int64
	Opens        int64
	OpensUnique  int64
	Clicks       int64
	ClicksUnique int64

	AvgOpenRate    float64
	AvgClickRate   float64
	AvgSubjectLen  float64
	AvgClickToOpen float64
	DeliveryRate   float64
	BounceRate     float64

	TopByOpenRate    []harvest.Record
	TopByClickRate   []harvest.Record
	BottomByOpenRate []harvest.Record
	CommonWords      []WordCount
}

const rankingSize = 5

// Analyze computes a Summary over records.
func Analyze(records []harvest.Record) *Summary {
	s := &Summary{Campaigns: len(records)}
	if len(records) == 0 {
		return s
	}

	var openRateSum, clickRateSum float64
	var subjectLenSum, subjectCount int
	for _, r := range records {
		s.Recipients += r.Stats.Recipients
		s.Delivered += r.Stats.Delivered
		s.Bounced += r.Stats.Bounced
		s.Opens += r.Stats.Opens
		s.OpensUnique += r.Stats.OpensUnique
		s.Clicks += r.Stats.Clicks
		s.ClicksUnique += r.Stats.ClicksUnique
		openRateSum += r.Stats.OpenRate
		clickRateSum += r.Stats.ClickRate
		if r.Subject != "" {
			subjectLenSum += len(r.Subject)
			subjectCount++
		}
	}
	s.AvgOpenRate = openRateSum / float64(len(records))
	s.AvgClickRate = clickRateSum / float64(len(records))
	if subjectCount > 0 {
		s.AvgSubjectLen = float64(subjectLenSum) / float64(subjectCount)
	}

	var ctoSum float64
	var ctoCount int
	for _, r := range records {
		if r.Stats.OpensUnique > 0 {
			ctoSum += float64(r.Stats.ClicksUnique) / float64(r.Stats.OpensUnique) * 100
			ctoCount++
		}
	}
	if ctoCount > 0 {
		s.AvgClickToOpen = ctoSum / float64(ctoCount)
	}
	if s.Recipients > 0 {
		s.DeliveryRate = float64(s.Delivered) / float64(s.Recipients) * 100
		s.BounceRate = float64(s.Bounced) / float64(s.Recipients) * 100
	}

	s.TopByOpenRate = rank(records, func(a, b harvest.Record) bool {
		return a.Stats.OpenRate > b.Stats.OpenRate
	})
	s.TopByClickRate = rank(records, func(a, b harvest.Record) bool {
		return a.Stats.ClickRate > b.Stats.ClickRate
	})
	s.BottomByOpenRate = rank(records, func(a, b harvest.Record) bool {
		return a.Stats.OpenRate < b.Stats.OpenRate
	})
	s.CommonWords = commonWords(records, s.AvgOpenRate)

	return s
}

// rank returns the first rankingSize records under the given ordering.
func rank(records []harvest.Record, less func(a, b harvest.Record) bool) []harvest.Record {
	sorted := make([]harvest.Record, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool { return less(sorted[i], sorted[j]) })
	if len(sorted) > rankingSize {
		sorted = sorted[:rankingSize]
	}
	return sorted
}

// commonWords counts words longer than three characters in the subjects of
// campaigns whose open rate beats the average, returning the ten most
// frequent.
func commonWords(records []harvest.Record, avgOpenRate float64) []WordCount {
	freq := make(map[string]int)
	for _, r := range records {
		if r.Stats.OpenRate <= avgOpenRate {
			continue
		}
		for _, word := range strings.Fields(strings.ToLower(r.Subject)) {
			if len(word) > 3 {
				freq[word]++
			}
		}
	}

	words := make([]WordCount, 0, len(freq))
	for w, n := range freq {
		words = append(words, WordCount{Word: w, Count: n})
	}
	sort.Slice(words, func(i, j int) bool {
		if words[i].Count != words[j].Count {
			return words[i].Count > words[j].Count
		}
		return words[i].Word < words[j].Word
	})
	if len(words) > 10 {
		words = words[:10]
	}
	return words
}

// LoadCSV reads an exported campaign CSV back into records. Numeric fields
// that fail to parse are treated as zero rather than failing the analysis.
func LoadCSV(path string) ([]harvest.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open export file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	field := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return row[i]
	}
	intField := func(row []string, name string) int64 {
		n, err := strconv.ParseInt(field(row, name), 10, 64)
		if err != nil {
			return 0
		}
		return n
	}
	floatField := func(row []string, name string) float64 {
		v, err := strconv.ParseFloat(field(row, name), 64)
		if err != nil {
			return 0
		}
		return v
	}

	var records []harvest.Record
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		records = append(records, harvest.Record{
			CampaignID:   field(row, "campaign_id"),
			CampaignName: field(row, "campaign_name"),
			Subject:      field(row, "subject"),
			Status:       field(row, "status"),
			SendTime:     field(row, "send_time"),
			FromLabel:    field(row, "from_label"),
			FromEmail:    field(row, "from_email"),
			PreviewText:  field(row, "preview_text"),
			Stats: harvest.Stats{
				Recipients:   intField(row, "recipients"),
				Delivered:    intField(row, "delivered"),
				Bounced:      intField(row, "bounced"),
				Opens:        intField(row, "opens"),
				OpensUnique:  intField(row, "opens_unique"),
				Clicks:       intField(row, "clicks"),
				ClicksUnique: intField(row, "clicks_unique"),
				OpenRate:     floatField(row, "open_rate"),
				ClickRate:    floatField(row, "click_rate"),
			},
		})
	}
	return records, nil
}

// Render writes the summary as text tables.
func (s *Summary) Render(w io.Writer) {
	if s.Campaigns == 0 {
		fmt.Fprintln(w, "No campaigns to analyze")
		return
	}

	overall := newTable(w, "Metric", "Value")
	overall.AppendRow(table.Row{"Campaigns", s.Campaigns})
	overall.AppendRow(table.Row{"Recipients", s.Recipients})
	overall.AppendRow(table.Row{"Opens", fmt.Sprintf("%d (%d unique)", s.Opens, s.OpensUnique)})
	overall.AppendRow(table.Row{"Clicks", fmt.Sprintf("%d (%d unique)", s.Clicks, s.ClicksUnique)})
	overall.AppendRow(table.Row{"Avg open rate", fmt.Sprintf("%.2f%%", s.AvgOpenRate)})
	overall.AppendRow(table.Row{"Avg click rate", fmt.Sprintf("%.2f%%", s.AvgClickRate)})
	overall.AppendRow(table.Row{"Avg subject length", fmt.Sprintf("%.0f chars", s.AvgSubjectLen)})
	overall.AppendRow(table.Row{"Avg click-to-open", fmt.Sprintf("%.2f%%", s.AvgClickToOpen)})
	overall.AppendRow(table.Row{"Delivery rate", fmt.Sprintf("%.2f%%", s.DeliveryRate)})
	overall.AppendRow(table.Row{"Bounce rate", fmt.Sprintf("%.2f%%", s.BounceRate)})
	fmt.Fprintln(w, "Overall")
	overall.Render()

	renderRanking(w, "Top campaigns by open rate", s.TopByOpenRate, func(r harvest.Record) float64 { return r.Stats.OpenRate })
	renderRanking(w, "Top campaigns by click rate", s.TopByClickRate, func(r harvest.Record) float64 { return r.Stats.ClickRate })
	renderRanking(w, "Bottom campaigns by open rate", s.BottomByOpenRate, func(r harvest.Record) float64 { return r.Stats.OpenRate })

	if len(s.CommonWords) > 0 {
		words := newTable(w, "Word", "Count")
		for _, wc := range s.CommonWords {
			words.AppendRow(table.Row{wc.Word, wc.Count})
		}
		fmt.Fprintln(w, "Common words in high-performing subjects")
		words.Render()
	}
}

func renderRanking(w io.Writer, title string, records []harvest.Record, rate func(harvest.Record) float64) {
	t := newTable(w, "Subject", "Rate", "Recipients")
	for _, r := range records {
		subject := r.Subject
		if subject == "" {
			subject = r.CampaignName
		}
		if len(subject) > 50 {
			subject = subject[:50]
		}
		t.AppendRow(table.Row{subject, fmt.Sprintf("%.2f%%", rate(r)), r.Stats.Recipients})
	}
	fmt.Fprintln(w, title)
	t.Render()
}

func newTable(w io.Writer, header ...any) table.Writer {
	t := table.NewWriter()
	t.SetStyle(table.StyleRounded)
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row(header))
	return t
}
