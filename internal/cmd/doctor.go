package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/shirou/gopsutil/v4/disk"
	"github.com/spf13/cobra"

	"github.com/sourcerer-app/sourcerer/internal/fileutil"
	"github.com/sourcerer-app/sourcerer/internal/settings"
)

func CmdDoctor() *cobra.Command {
	return NewCommand(
		&cobra.Command{
			Use:   "doctor",
			Short: "Inspect the local configuration store",
			Long: `Check the configuration store for common problems.

The report covers file presence and permissions, schema version, lock
state, backups, and free disk space. The command exits non-zero when a
fatal problem is found, such as an unreadable document or a secret
store that does not decrypt with the local key.

Example:
  sourcerer doctor
  sourcerer doctor --data-dir=/var/lib/sourcerer
`,
		}, doctorFlags, runDoctor,
	)
}

var doctorFlags = []commandLineFlag{dataDirFlag}

const (
	checkOK   = "ok"
	checkWarn = "warning"
	checkFail = "fail"
)

type checkResult struct {
	name, status, detail string
}

var doctorHeader = table.Row{"Check", "Status", "Detail"}

func runDoctor(ctx *Context, _ []string) error {
	store := settings.New(ctx.Config.Paths.DataDir,
		settings.WithLockTimeout(ctx.Config.Store.LockTimeout),
		settings.WithBackupRetention(ctx.Config.Store.BackupRetention),
	)

	results := []checkResult{
		checkDataDir(store),
		checkConfigFile(ctx),
		checkDocument(store),
		checkSecrets(ctx, store),
		checkKeyFile(store),
		checkLock(store),
		checkBackups(store),
		checkProviders(ctx, store),
		checkDisk(ctx),
	}

	reportTable := table.NewWriter()
	reportTable.AppendHeader(doctorHeader)
	failures := 0
	for _, r := range results {
		reportTable.AppendRow(table.Row{r.name, r.status, r.detail})
		if r.status == checkFail {
			failures++
		}
	}
	fmt.Fprintln(ctx.Command.OutOrStdout(), reportTable.Render())

	if failures > 0 {
		return fmt.Errorf("%d check(s) failed", failures)
	}
	return nil
}

func checkDataDir(store *settings.Store) checkResult {
	dir := store.DataDir()
	if !fileutil.IsDir(dir) {
		return checkResult{"data directory", checkWarn, fmt.Sprintf("%s does not exist yet", dir)}
	}
	return checkResult{"data directory", checkOK, dir}
}

func checkConfigFile(ctx *Context) checkResult {
	if used := ctx.Config.Paths.ConfigFileUsed; used != "" {
		return checkResult{"config file", checkOK, used}
	}
	return checkResult{"config file", checkOK, "built-in defaults"}
}

func checkDocument(store *settings.Store) checkResult {
	if store.FirstRun() {
		return checkResult{"document", checkWarn, "not created yet (first run)"}
	}
	version, err := store.SchemaVersion()
	if err != nil {
		return checkResult{"document", checkFail, err.Error()}
	}
	switch {
	case version == settings.CurrentVersion:
		return checkResult{"document", checkOK, fmt.Sprintf("schema version %d", version)}
	case version < settings.CurrentVersion:
		return checkResult{"document", checkWarn,
			fmt.Sprintf("schema version %d; run migrate to reach %d", version, settings.CurrentVersion)}
	default:
		return checkResult{"document", checkFail,
			fmt.Sprintf("schema version %d is newer than supported %d", version, settings.CurrentVersion)}
	}
}

func checkSecrets(ctx *Context, store *settings.Store) checkResult {
	ids, err := store.SecretIDs(ctx)
	if err != nil {
		if errors.Is(err, settings.ErrDecryption) {
			return checkResult{"secret store", checkFail, "cannot decrypt; the key file may not match"}
		}
		return checkResult{"secret store", checkFail, err.Error()}
	}
	return checkResult{"secret store", checkOK, fmt.Sprintf("%d credential(s)", len(ids))}
}

func checkKeyFile(store *settings.Store) checkResult {
	path := store.KeyPath()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return checkResult{"master key", checkWarn, "not created yet"}
	}
	if err != nil {
		return checkResult{"master key", checkFail, err.Error()}
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		return checkResult{"master key", checkWarn, fmt.Sprintf("permissions %03o; expected 600", perm)}
	}
	return checkResult{"master key", checkOK, path}
}

func checkLock(store *settings.Store) checkResult {
	info, err := store.LockInfo()
	if err != nil {
		return checkResult{"lock", checkWarn, err.Error()}
	}
	if info == nil {
		return checkResult{"lock", checkOK, "not held"}
	}
	age := time.Since(info.AcquiredAt).Round(time.Second)
	return checkResult{"lock", checkWarn, fmt.Sprintf("held for %s; another process may be writing", age)}
}

func checkBackups(store *settings.Store) checkResult {
	backups, err := store.Backups()
	if err != nil {
		return checkResult{"backups", checkWarn, err.Error()}
	}
	return checkResult{"backups", checkOK, fmt.Sprintf("%d snapshot(s)", len(backups))}
}

func checkProviders(ctx *Context, store *settings.Store) checkResult {
	version, err := store.SchemaVersion()
	if err != nil {
		return checkResult{"providers", checkFail, err.Error()}
	}
	// The doctor never repairs; a behind-version document is reported
	// above and skipped here instead of being migrated as a side effect.
	if !store.FirstRun() && version != settings.CurrentVersion {
		return checkResult{"providers", checkWarn, "skipped; document is not at the current schema version"}
	}
	cfg, err := store.Load(ctx)
	if err != nil {
		return checkResult{"providers", checkFail, err.Error()}
	}
	ids, err := store.SecretIDs(ctx)
	if err != nil {
		return checkResult{"providers", checkWarn, "secret store unreadable; validation skipped"}
	}
	if problems := settings.Validate(cfg, ids); len(problems) > 0 {
		return checkResult{"providers", checkWarn, strings.Join(problems, "; ")}
	}
	return checkResult{"providers", checkOK, fmt.Sprintf("%d configured", len(cfg.Providers))}
}

func checkDisk(ctx *Context) checkResult {
	dir := ctx.Config.Paths.DataDir
	usage, err := disk.UsageWithContext(ctx, dir)
	if err != nil {
		// The data directory may not exist yet; measure its parent.
		usage, err = disk.UsageWithContext(ctx, filepath.Dir(dir))
		if err != nil {
			return checkResult{"disk space", checkWarn, err.Error()}
		}
	}
	detail := fmt.Sprintf("%.1f GiB free of %.1f GiB",
		float64(usage.Free)/(1<<30), float64(usage.Total)/(1<<30))
	if usage.Free < 50*(1<<20) {
		return checkResult{"disk space", checkFail, detail}
	}
	return checkResult{"disk space", checkOK, detail}
}
