package shell

import (
	"bytes"
	"regexp"
	"strings"

	"mvdan.cc/sh/v3/syntax"
)

// safeVars are environment variables that are non-sensitive and fine to log.
var safeVars = map[string]bool{
	"HOME": true, "USER": true, "PWD": true, "OLDPWD": true,
	"SHELL": true, "PATH": true, "LANG": true, "TERM": true,
	"EDITOR": true, "PAGER": true, "HOSTNAME": true, "LOGNAME": true,
	"TMPDIR": true, "XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true,
}

// specialParams are shell special parameters that should not be redacted.
var specialParams = map[string]bool{
	"?": true, "!": true, "#": true, "@": true, "*": true,
	"-": true, "$": true, "_": true,
	"0": true, "1": true, "2": true, "3": true, "4": true,
	"5": true, "6": true, "7": true, "8": true, "9": true,
}

// Redact replaces sensitive environment variable references and assignment
// values in a command string before it is written to a log. Safe variables
// (PATH, HOME, etc.) and special shell parameters ($?, $!, etc.) are kept.
func Redact(cmd string) string {
	parser := syntax.NewParser(syntax.Variant(syntax.LangBash), syntax.KeepComments(true))
	prog, err := parser.Parse(strings.NewReader(cmd), "")
	if err != nil {
		return regexRedact(cmd)
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
		return regexRedact(cmd)
	}
	return strings.TrimRight(buf.String(), "\n")
}

var (
	reBraceVar  = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)
	reSimpleVar = regexp.MustCompile(`\$([A-Za-z_][A-Za-z0-9_]*)`)
	reAssign    = regexp.MustCompile(`\b([A-Za-z_][A-Za-z0-9_]*)=(\S+)`)
)

// regexRedact is a fallback for commands that fail AST parsing.
func regexRedact(cmd string) string {
	cmd = reBraceVar.ReplaceAllStringFunc(cmd, func(m string) string {
		name := reBraceVar.FindStringSubmatch(m)[1]
		if safeVars[name] || specialParams[name] {
			return m
		}
		return "${REDACTED}"
	})

	cmd = reSimpleVar.ReplaceAllStringFunc(cmd, func(m string) string {
		name := reSimpleVar.FindStringSubmatch(m)[1]
		if name == "REDACTED" { // already redacted by brace pass
			return m
		}
		if safeVars[name] || specialParams[name] {
			return m
		}
		return "$REDACTED"
	})

	cmd = reAssign.ReplaceAllStringFunc(cmd, func(m string) string {
		name := reAssign.FindStringSubmatch(m)[1]
		if safeVars[name] {
			return m
		}
		return name + "=***"
	})

	return cmd
}
