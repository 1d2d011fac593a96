package main

import (
	"bufio"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"
)

type LogStats struct {
	TotalErrors      int
	Subscriptions    int
	PlanChanges      int
	Cancellations    int
	Renewals         int
	Expirations      int
	RenewalFailures  int
	Sweeps           int
	TopUpsRequested  int
	TopUpsApproved   int
	TopUpsRejected   int
	RequeuedMessages int
	DroppedMessages  int
	RejectedTokens   int
	FailedRequests   int
	UserActivities   map[string]int
	ErrorPatterns    map[string]int
}

// "ERROR: 2026/05/01 12:00:00 renewal.go:119: message"
var linePrefix = regexp.MustCompile(`^[A-Z]+: \S+ \S+ [^:]+:\d+: `)

var (
	requestLine = regexp.MustCompile(`Status: (\d{3})`)
	userPattern = regexp.MustCompile(`(?:User:?|user) ([A-Za-z0-9._@-]+)`)
	uuidPattern = regexp.MustCompile(`[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}`)
)

type counter struct {
	marker string
	field  func(*LogStats) *int
}

var infoCounters = []counter{
	{" subscribed to plan ", func(s *LogStats) *int { return &s.Subscriptions }},
	{" now on plan ", func(s *LogStats) *int { return &s.PlanChanges }},
	{" canceled", func(s *LogStats) *int { return &s.Cancellations }},
	{" renewed on plan ", func(s *LogStats) *int { return &s.Renewals }},
	{" expired: ", func(s *LogStats) *int { return &s.Expirations }},
	{"Renewal sweep finished", func(s *LogStats) *int { return &s.Sweeps }},
	{" requested by user ", func(s *LogStats) *int { return &s.TopUpsRequested }},
	{" approved, wallet ", func(s *LogStats) *int { return &s.TopUpsApproved }},
	{" rejected", func(s *LogStats) *int { return &s.TopUpsRejected }},
}

var errorCounters = []counter{
	{"Renewal of subscription ", func(s *LogStats) *int { return &s.RenewalFailures }},
	{"requeueing", func(s *LogStats) *int { return &s.RequeuedMessages }},
	{"undecodable message", func(s *LogStats) *int { return &s.DroppedMessages }},
	{"Rejected token", func(s *LogStats) *int { return &s.RejectedTokens }},
	{"Invalid token", func(s *LogStats) *int { return &s.RejectedTokens }},
}

func newLogStats() *LogStats {
	return &LogStats{
		UserActivities: make(map[string]int),
		ErrorPatterns:  make(map[string]int),
	}
}

func main() {
	logDir := flag.String("dir", "./logs", "directory holding the daily log files")
	day := flag.String("date", time.Now().Format("2006-01-02"), "day to analyze (YYYY-MM-DD)")
	flag.Parse()

	stats := newLogStats()
	analyzeFile(filepath.Join(*logDir, fmt.Sprintf("error-%s.log", *day)), stats.addErrorLine)
	analyzeFile(filepath.Join(*logDir, fmt.Sprintf("info-%s.log", *day)), stats.addInfoLine)

	printReport(os.Stdout, stats)
}

func analyzeFile(logFile string, add func(string)) {
	file, err := os.Open(logFile)
	if err != nil {
		fmt.Printf("Error opening log file %s: %v\n", logFile, err)
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		add(scanner.Text())
	}
}

// message strips the logger prefix from line
func message(line string) string {
	return linePrefix.ReplaceAllString(line, "")
}

func (s *LogStats) addErrorLine(line string) {
	msg := message(line)
	if msg == "" || strings.HasPrefix(line, "\t") {
		return
	}
	s.TotalErrors++
	for _, c := range errorCounters {
		if strings.Contains(msg, c.marker) {
			*c.field(s)++
		}
	}
	s.extractUserActivity(msg)
	s.ErrorPatterns[errorPattern(msg)]++
}

func (s *LogStats) addInfoLine(line string) {
	msg := message(line)
	if m := requestLine.FindStringSubmatch(msg); m != nil {
		if status, _ := strconv.Atoi(m[1]); status >= 400 {
			s.FailedRequests++
		}
		return
	}
	for _, c := range infoCounters {
		if strings.Contains(msg, c.marker) {
			*c.field(s)++
			s.extractUserActivity(msg)
			return
		}
	}
}

func (s *LogStats) extractUserActivity(msg string) {
	if m := userPattern.FindStringSubmatch(msg); m != nil {
		s.UserActivities[m[1]]++
	}
}

// errorPattern keeps the text before the first detail separator with ids
// masked so identical failures group together
func errorPattern(msg string) string {
	msg = uuidPattern.ReplaceAllString(msg, "<id>")
	if i := strings.Index(msg, ": "); i > 0 {
		msg = msg[:i]
	}
	if i := strings.Index(msg, " - "); i > 0 {
		msg = msg[:i]
	}
	return strings.TrimSpace(msg)
}

func printReport(w io.Writer, stats *LogStats) {
	fmt.Fprintln(w, "\n=== Log Analysis Report ===")
	fmt.Fprintln(w, "Generated:", time.Now().Format("2006-01-02 15:04:05"))
	fmt.Fprintln(w, "\n1. Membership:")
	fmt.Fprintf(w, "   Subscriptions: %d\n", stats.Subscriptions)
	fmt.Fprintf(w, "   Plan Changes: %d\n", stats.PlanChanges)
	fmt.Fprintf(w, "   Cancellations: %d\n", stats.Cancellations)

	fmt.Fprintln(w, "\n2. Renewals:")
	fmt.Fprintf(w, "   Sweeps: %d\n", stats.Sweeps)
	fmt.Fprintf(w, "   Renewed: %d\n", stats.Renewals)
	fmt.Fprintf(w, "   Expired: %d\n", stats.Expirations)
	fmt.Fprintf(w, "   Failed: %d\n", stats.RenewalFailures)

	fmt.Fprintln(w, "\n3. Wallet Top-Ups:")
	fmt.Fprintf(w, "   Requested: %d\n", stats.TopUpsRequested)
	fmt.Fprintf(w, "   Approved: %d\n", stats.TopUpsApproved)
	fmt.Fprintf(w, "   Rejected: %d\n", stats.TopUpsRejected)

	fmt.Fprintln(w, "\n4. Delivery and Access:")
	fmt.Fprintf(w, "   Requeued Messages: %d\n", stats.RequeuedMessages)
	fmt.Fprintf(w, "   Dropped Messages: %d\n", stats.DroppedMessages)
	fmt.Fprintf(w, "   Rejected Tokens: %d\n", stats.RejectedTokens)
	fmt.Fprintf(w, "   Failed Requests: %d\n", stats.FailedRequests)

	fmt.Fprintln(w, "\n5. Error Statistics:")
	fmt.Fprintf(w, "   Total Errors: %d\n", stats.TotalErrors)

	fmt.Fprintln(w, "\n6. Most Active Users:")
	printTop(w, stats.UserActivities, 5, "activities")

	fmt.Fprintln(w, "\n7. Most Common Errors:")
	printTop(w, stats.ErrorPatterns, 5, "occurrences")
}

type entryCount struct {
	key   string
	count int
}

// topEntries sorts counts descending, breaking ties by key
func topEntries(counts map[string]int, limit int) []entryCount {
	var entries []entryCount
	for key, count := range counts {
		entries = append(entries, entryCount{key, count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].key < entries[j].key
	})
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func printTop(w io.Writer, counts map[string]int, limit int, unit string) {
	for _, e := range topEntries(counts, limit) {
		fmt.Fprintf(w, "   %s: %d %s\n", e.key, e.count, unit)
	}
}
