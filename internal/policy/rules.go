package policy

import (
	"regexp"

	"github.com/RazorglintLabs/command-guardian/internal/classify"
)

// BlockRule is an always-deny pattern. A match cannot be overridden by
// tokens or interactive confirmation.
type BlockRule struct {
	Description string
	Suggestion  string
	pattern     *regexp.Regexp
}

// builtinBlockRules are evaluated in order, first match wins.
var builtinBlockRules = []BlockRule{
	{
		Description: "Destructive root deletion (rm -rf /)",
		Suggestion:  "Delete specific paths instead: rm -rf ./my_folder",
		pattern:     regexp.MustCompile(`(?i)\brm\s+.*-[A-Za-z]*r[A-Za-z]*f[A-Za-z]*\s+/\s*$`),
	},
	{
		Description: "Destructive root deletion (rm -fr /)",
		Suggestion:  "Delete specific paths instead: rm -rf ./my_folder",
		pattern:     regexp.MustCompile(`(?i)\brm\s+.*-[A-Za-z]*f[A-Za-z]*r[A-Za-z]*\s+/\s*$`),
	},
	{
		Description: "Destructive root deletion (rm -rf /*)",
		Suggestion:  "Delete specific paths instead: rm -rf ./my_folder",
		pattern:     regexp.MustCompile(`(?i)\brm\s+.*-[A-Za-z]*r[A-Za-z]*f[A-Za-z]*\s+/\*`),
	},
	{
		Description: "Network download piped to shell execution (curl|wget … | bash/sh)",
		Suggestion:  "Download the script first, review it, then run: curl -O script.sh && cat script.sh && bash script.sh",
		pattern:     regexp.MustCompile(`(?i)(curl|wget)\s+.*\|\s*(ba)?sh`),
	},
	{
		Description: "PowerShell download-and-execute pattern",
		Suggestion:  "Download the script first, review it, then run it from a local file.",
		pattern:     regexp.MustCompile(`(?i)powershell\s+.*(\biex\b|\bInvoke-Expression\b)`),
	},
	{
		Description: "PowerShell download-and-execute pattern (iwr | iex)",
		Suggestion:  "Download the script first, review it, then run it from a local file.",
		pattern:     regexp.MustCompile(`(?i)(iwr|Invoke-WebRequest)\s+.*\|\s*(iex|Invoke-Expression)`),
	},
	{
		Description: "Disk formatting command (mkfs/diskpart)",
		Suggestion:  "Use safe disk utilities with explicit confirmation.",
		pattern:     regexp.MustCompile(`(?i)(^|\s)(mkfs|diskpart)\b`),
	},
	{
		Description: "Disk formatting command (format drive)",
		Suggestion:  "Use safe disk utilities with explicit confirmation.",
		pattern:     regexp.MustCompile(`(?i)\bformat\s+[A-Za-z]:`),
	},
	{
		Description: "Destructive device write (dd … of=/dev/…)",
		Suggestion:  "Double-check the target device; use a file path instead of a block device.",
		pattern:     regexp.MustCompile(`(?i)\bdd\b.*\bof=/dev/`),
	},
}

// riskyIntents are not blocked outright but require a valid token or
// interactive confirmation before execution.
var riskyIntents = []classify.Intent{
	classify.FileDelete,
	classify.PrivilegeEscalation,
	classify.ProcessKill,
	classify.SystemConfig,
}

func suggestionForIntent(intent classify.Intent) string {
	switch intent {
	case classify.FileDelete:
		return "Use guardian allow file_delete --ttl 30s to pre-authorize, or confirm interactively."
	case classify.PrivilegeEscalation:
		return "Review the command carefully. Use guardian allow privilege_escalation --ttl 30s."
	case classify.ProcessKill:
		return "Consider graceful termination (kill <pid>) before kill -9."
	case classify.SystemConfig:
		return "Back up your configuration first."
	default:
		return ""
	}
}
