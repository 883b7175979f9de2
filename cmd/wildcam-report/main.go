package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"sort"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/thewriterben/wildcam/internal/store"
)

// wildcam-report renders an offline HTML activity report from the device's
// event database: detections over time, category mix, hourly activity and
// the fused-confidence distribution.
func main() {
	var (
		dbPath = flag.String("db", "wildcam.db", "SQLite database path")
		out    = flag.String("out", "wildcam-report.html", "output HTML file")
		days   = flag.Int("days", 7, "days of history to include")
	)
	flag.Parse()

	logger := log.New(os.Stderr, "[wildcam-report] ", log.Ltime)

	st, err := store.Open(*dbPath)
	if err != nil {
		logger.Fatalf("opening store: %v", err)
	}
	defer st.Close()

	since := time.Now().AddDate(0, 0, -*days)
	events, err := st.ListEvents("", &since, 0)
	if err != nil {
		logger.Fatalf("listing events: %v", err)
	}
	if len(events) == 0 {
		logger.Fatalf("no events in the last %d days", *days)
	}

	page := components.NewPage()
	page.PageTitle = "Wildlife Camera Activity"
	page.AddCharts(
		detectionsOverTime(events),
		categoryMix(events),
		hourlyActivity(events),
		confidenceHistogram(events),
	)

	f, err := os.Create(*out)
	if err != nil {
		logger.Fatalf("creating %s: %v", *out, err)
	}
	defer f.Close()
	if err := page.Render(f); err != nil {
		logger.Fatalf("rendering report: %v", err)
	}
	logger.Printf("wrote %s (%d events)", *out, len(events))
}

func detectionsOverTime(events []*store.DetectionEventRecord) *charts.Line {
	perDay := make(map[string]int)
	captures := make(map[string]int)
	for _, ev := range events {
		day := ev.Timestamp.Format("2006-01-02")
		if ev.Motion {
			perDay[day]++
		}
		if ev.Captured {
			captures[day]++
		}
	}

	days := make([]string, 0, len(perDay))
	for day := range perDay {
		days = append(days, day)
	}
	sort.Strings(days)

	detected := make([]opts.LineData, 0, len(days))
	captured := make([]opts.LineData, 0, len(days))
	for _, day := range days {
		detected = append(detected, opts.LineData{Value: perDay[day]})
		captured = append(captured, opts.LineData{Value: captures[day]})
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Detections per day"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
	)
	line.SetXAxis(days).
		AddSeries("detections", detected).
		AddSeries("captures", captured)
	return line
}

func categoryMix(events []*store.DetectionEventRecord) *charts.Pie {
	counts := make(map[string]int)
	for _, ev := range events {
		if !ev.Motion {
			continue
		}
		cat := ev.Category
		if cat == "" {
			cat = "unclassified"
		}
		counts[cat]++
	}

	data := make([]opts.PieData, 0, len(counts))
	for cat, n := range counts {
		data = append(data, opts.PieData{Name: cat, Value: n})
	}
	sort.Slice(data, func(i, j int) bool { return data[i].Name < data[j].Name })

	pie := charts.NewPie()
	pie.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Category mix"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	pie.AddSeries("categories", data)
	return pie
}

func hourlyActivity(events []*store.DetectionEventRecord) *charts.Bar {
	var perHour [24]int
	for _, ev := range events {
		if ev.Motion {
			perHour[ev.Timestamp.Hour()]++
		}
	}

	hours := make([]string, 24)
	data := make([]opts.BarData, 24)
	for h := 0; h < 24; h++ {
		hours[h] = fmt.Sprintf("%02d", h)
		data[h] = opts.BarData{Value: perHour[h]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Activity by hour"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(hours).
		AddSeries("detections", data,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar
}

func confidenceHistogram(events []*store.DetectionEventRecord) *charts.Bar {
	const buckets = 10
	var counts [buckets]int
	for _, ev := range events {
		if !ev.Motion {
			continue
		}
		idx := int(ev.Confidence * buckets)
		if idx >= buckets {
			idx = buckets - 1
		}
		if idx < 0 {
			idx = 0
		}
		counts[idx]++
	}

	labels := make([]string, buckets)
	data := make([]opts.BarData, buckets)
	for i := 0; i < buckets; i++ {
		labels[i] = fmt.Sprintf("%.1f-%.1f", float64(i)/buckets, float64(i+1)/buckets)
		data[i] = opts.BarData{Value: counts[i]}
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Fused confidence distribution"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(labels).AddSeries("events", data)
	return bar
}
