// Package classify maps raw shell commands to symbolic intents.
//
// Classification is a deterministic first-match-wins walk over an
// ordered rule list. Rule order is load-bearing: destructive patterns
// (disk format, pipe-to-shell) are checked before delete/privilege
// patterns, which are checked before the safe echo fallback, because
// several dangerous commands also contain substrings that would match
// benign rules.
package classify

import (
	"regexp"
	"strings"
)

// Intent is the symbolic classification of a command's apparent purpose.
type Intent string

const (
	SafeEcho            Intent = "safe_echo"
	ShellRun            Intent = "shell_run"
	FileDelete          Intent = "file_delete"
	NetworkExec         Intent = "network_exec"
	PrivilegeEscalation Intent = "privilege_escalation"
	DiskFormat          Intent = "disk_format"
	ProcessKill         Intent = "process_kill"
	SystemConfig        Intent = "system_config"
)

// AllIntents lists every intent the classifier can assign.
var AllIntents = []Intent{
	SafeEcho,
	ShellRun,
	FileDelete,
	NetworkExec,
	PrivilegeEscalation,
	DiskFormat,
	ProcessKill,
	SystemConfig,
}

// Valid reports whether s names a known intent.
func Valid(s string) bool {
	for _, i := range AllIntents {
		if string(i) == s {
			return true
		}
	}
	return false
}

type rule struct {
	intent  Intent
	pattern *regexp.Regexp
}

// sep anchors a pattern to the start of the command or to a shell
// command separator, so a dangerous command hidden behind a benign
// prefix ("echo hi && rm -rf x") is still detected.
const sep = `(^|\||;|&&)`

// rules is evaluated in order; the first match wins.
var rules = []rule{
	// disk_format before anything generic
	{DiskFormat, regexp.MustCompile(`(?i)` + sep + `\s*(mkfs|format\s+\w+:|diskpart|dd\s+)`)},
	{DiskFormat, regexp.MustCompile(`(?i)\bdd\b.*\bof=/dev/`)},

	// network_exec: pipe-to-shell and powershell download-exec
	{NetworkExec, regexp.MustCompile(`(?i)(curl|wget)\s+.*\|\s*(ba)?sh`)},
	{NetworkExec, regexp.MustCompile(`(?i)powershell\s+.*(\biex\b|\bInvoke-Expression\b|\biwr\b.*\|\s*iex)`)},
	{NetworkExec, regexp.MustCompile(`(?i)(curl|wget|Invoke-WebRequest|iwr)\s+.*\|\s*(iex|Invoke-Expression|sh|bash)`)},

	// file_delete
	{FileDelete, regexp.MustCompile(`(?i)` + sep + `\s*rm\s+`)},
	{FileDelete, regexp.MustCompile(`(?i)` + sep + `\s*(del|rmdir|Remove-Item)\s+`)},

	// privilege_escalation
	{PrivilegeEscalation, regexp.MustCompile(`(?i)` + sep + `\s*(sudo|doas|runas|pkexec)\s+`)},
	{PrivilegeEscalation, regexp.MustCompile(`(?i)\bchmod\s+.*\b777\b`)},
	{PrivilegeEscalation, regexp.MustCompile(`(?i)\bchmod\s+-R\s+`)},

	// process_kill
	{ProcessKill, regexp.MustCompile(`(?i)` + sep + `\s*(kill|killall|pkill)\s+`)},
	{ProcessKill, regexp.MustCompile(`(?i)` + sep + `\s*taskkill\s+`)},

	// system_config
	{SystemConfig, regexp.MustCompile(`(?i)` + sep + `\s*(sysctl|systemctl|launchctl|reg\s+(add|delete))\s+`)},
	{SystemConfig, regexp.MustCompile(`(?i)\bregedit\b`)},

	// safe_echo must stay near the end
	{SafeEcho, regexp.MustCompile(`(?i)^\s*echo\s+`)},
	{SafeEcho, regexp.MustCompile(`(?i)^\s*printf\s+`)},
}

// Classify returns the intent for command. Total function: unmatched
// input falls back to ShellRun, never an error.
func Classify(command string) Intent {
	cmd := strings.TrimSpace(command)
	for _, r := range rules {
		if r.pattern.MatchString(cmd) {
			return r.intent
		}
	}
	return ShellRun
}
