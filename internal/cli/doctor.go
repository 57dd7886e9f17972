package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"vmgr/internal/archive"
	"vmgr/internal/install"
	"vmgr/internal/paths"
)

func newDoctorCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Check that installs can run on this machine",
		RunE:  runDoctor,
	}
}

type healthCheck struct {
	Name    string `json:"name"`
	Status  string `json:"status"` // "ok", "warning", "error"
	Summary string `json:"summary"`
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	env, err := loadEnvironment()
	if err != nil {
		return err
	}

	var checks []healthCheck
	checks = append(checks, checkConfig(env))
	checks = append(checks, checkPlatform(cmd, env))
	checks = append(checks, checkStorage(env.paths.StorageDir))
	checks = append(checks, checkLocks(env.paths.LocksDir, time.Now()))

	return writeDoctorResult(cmd, env.paths.Home, checks)
}

func checkConfig(env environment) healthCheck {
	results := env.cfg.Validate()
	if len(results) == 0 {
		return healthCheck{Name: "Config", Status: "ok", Summary: "valid"}
	}
	var msgs []string
	status := "warning"
	for _, r := range results {
		msgs = append(msgs, r.Message)
		if r.Level == "error" {
			status = "error"
		}
	}
	return healthCheck{Name: "Config", Status: status, Summary: strings.Join(msgs, "; ")}
}

func checkPlatform(cmd *cobra.Command, env environment) healthCheck {
	info, err := env.detectPlatform(commandContext(cmd))
	if err != nil {
		return healthCheck{Name: "Platform", Status: "error", Summary: err.Error()}
	}
	extractor, err := extractorFor(archive.Options{Layout: env.cfg.Layout.Layout, Namer: info})
	if err != nil {
		return healthCheck{Name: "Platform", Status: "error", Summary: fmt.Sprintf("%s/%s: %v", info.OS, info.Arch, err)}
	}
	return healthCheck{
		Name:    "Platform",
		Status:  "ok",
		Summary: fmt.Sprintf("%s/%s installs %s archives into %s", info.OS, info.Arch, extractor.Format(), nonEmptyOrDash(info.PlatformName())),
	}
}

// checkStorage confirms the storage directory exists and accepts new files.
func checkStorage(dir string) healthCheck {
	exists, err := paths.DirExists(dir)
	if err != nil {
		return healthCheck{Name: "Storage", Status: "error", Summary: err.Error()}
	}
	if !exists {
		return healthCheck{Name: "Storage", Status: "warning", Summary: fmt.Sprintf("%s does not exist yet (run vmgr config init)", dir)}
	}

	probe, err := os.CreateTemp(dir, ".vmgr-probe-*")
	if err != nil {
		return healthCheck{Name: "Storage", Status: "error", Summary: fmt.Sprintf("%s is not writable: %v", dir, err)}
	}
	name := probe.Name()
	probe.Close()
	os.Remove(name)
	return healthCheck{Name: "Storage", Status: "ok", Summary: dir}
}

// checkLocks reports lock files that outlived a crashed install.
func checkLocks(dir string, now time.Time) healthCheck {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return healthCheck{Name: "Locks", Status: "ok", Summary: "none held"}
		}
		return healthCheck{Name: "Locks", Status: "error", Summary: err.Error()}
	}

	var held, stale []string
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lock" {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		version := strings.TrimSuffix(entry.Name(), ".lock")
		if now.Sub(info.ModTime()) > install.StaleLockThreshold {
			stale = append(stale, version)
		} else {
			held = append(held, version)
		}
	}

	switch {
	case len(stale) > 0:
		return healthCheck{Name: "Locks", Status: "warning", Summary: "stale: " + joinComma(stale)}
	case len(held) > 0:
		return healthCheck{Name: "Locks", Status: "ok", Summary: "in progress: " + joinComma(held)}
	default:
		return healthCheck{Name: "Locks", Status: "ok", Summary: "none held"}
	}
}

func writeDoctorResult(cmd *cobra.Command, home string, checks []healthCheck) error {
	if outputJSON {
		data, err := json.MarshalIndent(checks, "", "  ")
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	}

	bold := lipgloss.NewStyle().Bold(true).Inline(true)
	green := lipgloss.NewStyle().Foreground(lipgloss.Color("2")).Inline(true)
	yellow := lipgloss.NewStyle().Foreground(lipgloss.Color("3")).Inline(true)
	red := lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Inline(true)

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, bold.Render("VMGR HEALTH:")+" "+home)

	for _, c := range checks {
		var statusStr string
		switch c.Status {
		case "ok":
			statusStr = green.Render("OK")
		case "warning":
			statusStr = yellow.Render("WARN")
		case "error":
			statusStr = red.Render("ERROR")
		}
		fmt.Fprintf(out, "  %-12s %s    %s\n", c.Name+":", statusStr, c.Summary)
	}

	return nil
}

func joinComma(items []string) string {
	return strings.Join(items, ", ")
}
