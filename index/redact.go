package index

import (
	"bytes"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// safeVars are environment variables that carry no secrets.
var safeVars = map[string]bool{
	"HOME": true, "USER": true, "PWD": true, "OLDPWD": true,
	"SHELL": true, "PATH": true, "LANG": true, "TERM": true,
	"EDITOR": true, "PAGER": true, "HOSTNAME": true, "LOGNAME": true,
	"TMPDIR": true, "XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true,
	"XDG_RUNTIME_DIR": true, "DISPLAY": true, "WAYLAND_DISPLAY": true,
}

// specialParams are shell special parameters.
var specialParams = map[string]bool{
	"?": true, "!": true, "#": true, "@": true, "*": true,
	"-": true, "$": true, "_": true,
	"0": true, "1": true, "2": true, "3": true, "4": true,
	"5": true, "6": true, "7": true, "8": true, "9": true,
}

// reToken matches strings shaped like API tokens.
var reToken = regexp.MustCompile(`\b(sk|pk|rk|ghp|gho|ghs|xoxb|xoxp|glpat)[-_][A-Za-z0-9_\-]{16,}`)

// Redact scrubs captured text before it is embedded or logged. Lines that
// look like shell (they reference or assign variables) have sensitive
// variable references and assignment values replaced; token-shaped strings
// are masked everywhere. Other text passes through unchanged.
func Redact(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.ContainsAny(line, "$=") {
			lines[i] = redactShell(line)
		}
	}
	return reToken.ReplaceAllString(strings.Join(lines, "\n"), "***")
}

// redactShell replaces sensitive variable references and assignment values
// in one line of shell. Safe variables and special parameters are kept.
func redactShell(line string) string {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(true))
	prog, err := parser.Parse(strings.NewReader(line), "")
	if err != nil {
		return regexRedact(line)
	}

	syntax.Walk(prog, func(node syntax.Node) bool {
		switch n := node.(type) {
		case *syntax.ParamExp:
			if n.Param != nil && !safeVars[n.Param.Value] && !specialParams[n.Param.Value] {
				n.Param.Value = "REDACTED"
			}
		case *syntax.Assign:
			if n.Name != nil && !safeVars[n.Name.Value] && n.Value != nil {
				n.Value.Parts = []syntax.WordPart{&syntax.Lit{Value: "***"}}
			}
		}
		return true
	})

	var buf bytes.Buffer
	printer := syntax.NewPrinter(syntax.Indent(0))
	if err := printer.Print(&buf, prog); err != nil {
		return regexRedact(line)
	}
	return strings.TrimRight(buf.String(), "\n")
}

var (
	reBraceVar  = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	reSimpleVar = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	reAssign    = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)=(\S+)`)
)

// regexRedact handles lines the shell parser rejects, which is most prose.
func regexRedact(line string) string {
	line = reBraceVar.ReplaceAllStringFunc(line, func(m string) string {
		name := reBraceVar.FindStringSubmatch(m)[1]
		if safeVars[name] {
			return m
		}
		return "${REDACTED}"
	})

	line = reSimpleVar.ReplaceAllStringFunc(line, func(m string) string {
		name := reSimpleVar.FindStringSubmatch(m)[1]
		if name == "REDACTED" || safeVars[name] {
			return m
		}
		return "$REDACTED"
	})

	line = reAssign.ReplaceAllStringFunc(line, func(m string) string {
		name := reAssign.FindStringSubmatch(m)[1]
		if safeVars[name] {
			return m
		}
		return name + "=***"
	})
	return line
}
