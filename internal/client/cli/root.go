package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"packtrack/internal/client/models"
	"packtrack/internal/client/services"
	"packtrack/internal/common"
)

func (a *App) getStatus() string {
	s := ""
	if u := a.sess.User().Username; u != "" {
		s = u
	}
	if t := a.svc.Task(); t != nil {
		if s != "" {
			s += " "
		}
		s += t.TaskID + "/" + string(t.Type)
	}
	if s != "" {
		s = fmt.Sprintf("(%s)", s)
	}
	return s
}

func (a *App) Root(ctx context.Context) {

	fmt.Println("packtrack scanning console (type 'help' for commands)")
	scanner := bufio.NewScanner(os.Stdin)

	a.Login(ctx)

	for {
		fmt.Printf("ptrack %s> ", a.getStatus())
		if !scanner.Scan() {
			break
		}
		line := scanner.Text()
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}

		cmd := parts[0]
		args := parts[1:]

		switch cmd {
		case "help":
			if a.isLoggedIn() {
				fmt.Println("Available commands: open <task-id>, scan, expected, list [filter], counters, delete <id>, cancel <id> <on|off>, report, refresh, ping, logout, exit")
			} else {
				fmt.Println("Available commands: login, ping, exit")
			}

		case "login":
			a.Login(ctx)
		case "open":
			if len(args) == 0 {
				fmt.Println("Usage: open <task-id>")
				continue
			}
			a.open(ctx, args[0])
		case "scan":
			a.scanLoop(ctx, scanner)
		case "expected":
			a.submitManifest(ctx)
		case "l", "list":
			filter := ""
			if len(args) > 0 {
				filter = args[0]
			}
			a.list(filter)
		case "counters":
			a.counters()
		case "delete":
			if len(args) == 0 {
				fmt.Println("Usage: delete <server-id>")
				continue
			}
			a.delete(ctx, args[0])
		case "cancel":
			if len(args) < 2 || (args[1] != "on" && args[1] != "off") {
				fmt.Println("Usage: cancel <server-id> <on|off>")
				continue
			}
			a.cancel(ctx, args[0], args[1] == "on")
		case "ping":
			a.ping(ctx)
		case "report":
			a.report(ctx)
		case "refresh":
			a.refresh(ctx)
		case "logout":
			a.Logout(ctx)
		case "exit", "quit":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Unknown command:", cmd)
		}
	}
}

func (a *App) open(ctx context.Context, taskRef string) {
	rctx, cancel := a.readCtx(ctx)
	defer cancel()

	if err := a.svc.Open(rctx, taskRef); err != nil {
		fmt.Printf("Open failed: %s\n", err.Error())
		return
	}

	t := a.svc.Task()
	fmt.Printf("%s - %s (%s)\n", t.Courier, t.Channel, t.Type)
	fmt.Printf("Vehicle %s, delivery %s %s\n", t.VehicleNo, t.DelexName, t.DelexContact)
	a.counters()
}

// scanLoop is the scanning mode: each line is one package identifier,
// optionally followed by remarks. A leading '!' marks the scan cancelled
// (outgoing tasks). An empty line leaves the mode.
func (a *App) scanLoop(ctx context.Context, scanner *bufio.Scanner) {
	if a.svc.Task() == nil {
		fmt.Println("Open a task first")
		return
	}

	fmt.Println("Scanning mode: <package-id> [remarks], '!' prefix = cancelled, empty line to finish")
	for {
		fmt.Print("scan> ")
		if !scanner.Scan() {
			return
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			return
		}

		cancelled := false
		if strings.HasPrefix(line, "!") {
			cancelled = true
			line = strings.TrimSpace(strings.TrimPrefix(line, "!"))
		}

		parts := strings.SplitN(line, " ", 2)
		remarks := ""
		if len(parts) == 2 {
			remarks = strings.TrimSpace(parts[1])
		}

		out := a.svc.Submit(parts[0], remarks, cancelled)
		switch out.Result {
		case services.ResultInvalidFormat:
			fmt.Println("Invalid package id (minimum 6 word characters), not recorded")
		case services.ResultDuplicate:
			fmt.Printf("Duplicate scan %s, not recorded\n", out.Identity)
		case services.ResultAccepted:
			if out.Matched {
				fmt.Printf("OK %s\n", out.Identity)
			} else {
				fmt.Printf("NOT IN MANIFEST %s\n", out.Identity)
				if a.config.StrictMatchAlert {
					fmt.Print("Press Enter to acknowledge")
					if !scanner.Scan() {
						return
					}
				}
			}
		}
	}
}

func (a *App) submitManifest(ctx context.Context) {
	if a.svc.Task() == nil {
		fmt.Println("Open a task first")
		return
	}

	text, err := GetMultiline(a.reader, "Paste expected package ids, one per line", os.Stdout)
	if err != nil {
		fmt.Printf("Input error: %s\n", err.Error())
		return
	}

	rctx, cancel := a.readCtx(ctx)
	defer cancel()

	n, err := a.svc.SubmitManifest(rctx, text)
	if err != nil {
		if errors.Is(err, common.ErrValidation) {
			fmt.Println("No valid ids in input (minimum 6 characters each)")
			return
		}
		fmt.Printf("Manifest submission failed: %s\n", err.Error())
		return
	}
	fmt.Printf("Expected manifest now holds %d ids\n", n)
}

func (a *App) list(filter string) {
	records := a.svc.Records(filter)
	if len(records) == 0 {
		fmt.Println("No scanned packages")
		return
	}
	for _, r := range records {
		flags := make([]string, 0, 3)
		if r.SyncState == models.SyncPending {
			flags = append(flags, "pending")
		}
		if r.Cancelled {
			flags = append(flags, "cancelled")
		}
		if r.MatchStatus == models.Matched {
			flags = append(flags, "matched")
		} else {
			flags = append(flags, "not-matched")
		}
		fmt.Printf("%-24s %s  %s  %s  %s\n",
			r.Identity,
			r.ScannedAt.Format("02/01/06 15:04:05"),
			strings.Join(flags, ","),
			r.ServerID,
			r.Remarks,
		)
	}
}

func (a *App) counters() {
	c := a.svc.DisplayCounters()
	fmt.Printf("scanned %d, cancelled %d, matched %d, not-matched %d, expected %d (%d unscanned)\n",
		c.Scanned, c.Cancelled, c.Matched, c.NotMatched, c.ExpectedTotal, c.ExpectedUnscanned)
}

func (a *App) delete(ctx context.Context, serverID string) {
	rctx, cancel := a.readCtx(ctx)
	defer cancel()

	if err := a.svc.Delete(rctx, serverID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			fmt.Println("No record with that server id (pending records cannot be deleted remotely)")
			return
		}
		fmt.Printf("Delete failed: %s\n", err.Error())
		return
	}
	fmt.Println("Package deleted")
}

func (a *App) cancel(ctx context.Context, serverID string, cancelled bool) {
	rctx, cancel := a.readCtx(ctx)
	defer cancel()

	if err := a.svc.SetCancelled(rctx, serverID, cancelled); err != nil {
		fmt.Printf("Cancel failed: %s\n", err.Error())
		return
	}
	fmt.Println("Package updated")
}

func (a *App) ping(ctx context.Context) {
	rctx, cancel := a.readCtx(ctx)
	defer cancel()

	if err := a.client.Ping(rctx); err != nil {
		fmt.Printf("Gateway unreachable: %s\n", err.Error())
		return
	}
	fmt.Println("Gateway is up")
}

func (a *App) refresh(ctx context.Context) {
	rctx, cancel := a.readCtx(ctx)
	defer cancel()

	n, err := a.svc.Refresh(rctx)
	if err != nil {
		fmt.Printf("Refresh failed: %s\n", err.Error())
		return
	}
	fmt.Printf("Synced, %d packages on the gateway\n", n)
}
