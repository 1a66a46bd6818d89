package cli

import (
	"context"
	"fmt"
	"io"
	"os"

	"packtrack/internal/client/models"
)

// report syncs with the gateway and renders the task report. Printing is
// refused while the local ledger and the gateway disagree on the package
// count, so a half-synced list never ends up on paper.
func (a *App) report(ctx context.Context) {
	if a.svc.Task() == nil {
		fmt.Println("Open a task first")
		return
	}

	rctx, cancel := a.readCtx(ctx)
	defer cancel()

	fmt.Println("Syncing data")
	serverCount, err := a.svc.Refresh(rctx)
	if err != nil {
		fmt.Printf("Sync failed: %s\n", err.Error())
		return
	}
	if len(a.svc.Records("")) != serverCount {
		fmt.Println("Scans still syncing, retry printing")
		return
	}

	a.renderReport(os.Stdout)
}

func (a *App) renderReport(w io.Writer) {
	t := a.svc.Task()
	c := a.svc.Counters()

	fmt.Fprintf(w, "Report_%s (%s)\n", t.TaskID, t.CreatedAt.Format("02/01/2006"))
	fmt.Fprintf(w, "%s - %s, %s\n", t.Courier, t.Channel, t.Type)
	fmt.Fprintf(w, "Vehicle: %s  Delivery: %s %s\n", t.VehicleNo, t.DelexName, t.DelexContact)
	fmt.Fprintf(w, "Created by: %s (%s)\n\n", t.CreatedBy.Name, t.CreatedBy.Username)
	fmt.Fprintf(w, "Scanned: %d  Cancelled: %d  Matched: %d  Not matched: %d  Expected unscanned: %d\n\n",
		c.Scanned, c.Cancelled, c.Matched, c.NotMatched, c.ExpectedUnscanned)

	fmt.Fprintf(w, "%-4s %-24s %-20s %-12s %s\n", "#", "PACKAGE", "TIME", "STATUS", "REMARKS")
	for i, r := range a.svc.Records("") {
		status := string(r.MatchStatus)
		if r.Cancelled {
			status = "cancelled"
		}
		if r.SyncState == models.SyncPending {
			status += "*"
		}
		fmt.Fprintf(w, "%-4d %-24s %-20s %-12s %s\n",
			i+1, r.Identity, r.ScannedAt.Format("02/01/06 15:04:05"), status, r.Remarks)
	}
}
