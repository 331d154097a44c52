// workers/report_archiver.go
package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"daily-checkin-system/services"
	"daily-checkin-system/utils"
)

// ReportArchiver uploads finished run reports to R2 as JSON blobs. It plugs
// into the Reporter chain, so a run that never finishes archives nothing.
type ReportArchiver struct{}

func NewReportArchiver() *ReportArchiver {
	return &ReportArchiver{}
}

func (a *ReportArchiver) Publish(ctx context.Context, report *services.RunReport) error {
	if !utils.R2Enabled() {
		return nil
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling run report: %w", err)
	}

	key := fmt.Sprintf("reports/%s/%s.json",
		report.StartedAt.UTC().Format("2006-01-02"), report.RunID)
	url, err := utils.UploadBytesToR2(ctx, key, data, "application/json")
	if err != nil {
		return fmt.Errorf("archiving run report: %w", err)
	}

	log.Printf("[ARCHIVE] ✅ Run %s archived to %s", report.RunID, url)
	return nil
}
