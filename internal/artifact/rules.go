package artifact

import (
	"context"
	"regexp"
	"strings"

	"git.home.luguber.info/inful/docsbuild/internal/buildenv"
	"git.home.luguber.info/inful/docsbuild/internal/git"
)

// Check names.
const (
	CheckRootEntry   = "root_entry"
	CheckNestedEntry = "nested_entry"
	CheckCurrentYear = "current_year"
	CheckBuildDate   = "build_date"
	CheckGitInfo     = "git_info"
)

// Default sampling and evidence patterns.
const (
	DefaultYearSample       = 10
	DefaultGitSample        = 20
	DefaultBuildDatePattern = `(?i)\bUTC\b|build`
	DefaultRevisionPattern  = `(?i)\b(commit|revision|git)\b`
)

// RootEntryRule requires index.html directly under the root.
type RootEntryRule struct{}

func (RootEntryRule) Name() string { return CheckRootEntry }

func (RootEntryRule) Validate(_ context.Context, vctx Context) Result {
	if vctx.Tree.HasRootEntry() {
		return Success()
	}
	return Failure("no %s at the site root", EntryDocument)
}

// NestedEntryRule requires at least one section with its own index.html.
type NestedEntryRule struct{}

func (NestedEntryRule) Name() string { return CheckNestedEntry }

func (NestedEntryRule) Validate(_ context.Context, vctx Context) Result {
	if len(vctx.Tree.NestedEntries()) > 0 {
		return Success()
	}
	return Failure("no %s in any nested directory; expected a multi-section site", EntryDocument)
}

// sampleMatch reports whether match accepts the text of any of the first n
// documents. Unreadable documents are logged and skipped.
func sampleMatch(ctx context.Context, vctx Context, n int, match func(string) bool) (bool, int) {
	sample := vctx.Tree.Sample(n)
	for _, rel := range sample {
		if ctx.Err() != nil {
			return false, len(sample)
		}
		text, err := vctx.Text(rel)
		if err != nil {
			if vctx.Logger != nil {
				vctx.Logger.Warn("Skipping unreadable document", "document", rel, "error", err)
			}
			continue
		}
		if match(text) {
			return true, len(sample)
		}
	}
	return false, len(sample)
}

// CurrentYearRule requires CURRENT_YEAR verbatim in a sampled document.
type CurrentYearRule struct {
	Sample int
}

func (CurrentYearRule) Name() string { return CheckCurrentYear }

func (r CurrentYearRule) Validate(ctx context.Context, vctx Context) Result {
	year := vctx.Env.CurrentYear()
	if year == "" {
		return Failure("%s is empty", buildenv.KeyCurrentYear)
	}
	found, n := sampleMatch(ctx, vctx, r.Sample, func(s string) bool { return strings.Contains(s, year) })
	if found {
		return Success()
	}
	return Failure("year %s not found in the first %d documents", year, n)
}

// BuildDateRule requires a sampled document to show build-date evidence.
type BuildDateRule struct {
	Sample  int
	Pattern *regexp.Regexp
}

func (BuildDateRule) Name() string { return CheckBuildDate }

func (r BuildDateRule) Validate(ctx context.Context, vctx Context) Result {
	found, n := sampleMatch(ctx, vctx, r.Sample, r.Pattern.MatchString)
	if found {
		return Success()
	}
	return Failure("no build-date evidence matching %q in the first %d documents", r.Pattern.String(), n)
}

// GitInfoRule requires revision evidence when the content carried
// source-control metadata; otherwise it passes. When GIT_INFO names a commit
// the evidence must be that commit: the abbreviated hash or a longer hex
// token sharing its prefix. Pattern is only consulted when no hash is known.
type GitInfoRule struct {
	Sample  int
	Pattern *regexp.Regexp
}

func (GitInfoRule) Name() string { return CheckGitInfo }

func (r GitInfoRule) Validate(ctx context.Context, vctx Context) Result {
	if !vctx.HasSourceControl {
		return Success()
	}
	short := ShortHash(vctx.Env.GitInfo())
	if short == "" {
		found, n := sampleMatch(ctx, vctx, r.Sample, r.Pattern.MatchString)
		if found {
			return Success()
		}
		return Failure("content is under source control but no revision evidence matching %q in the first %d documents",
			r.Pattern.String(), n)
	}
	found, n := sampleMatch(ctx, vctx, r.Sample, func(s string) bool { return containsRevision(s, short) })
	if found {
		return Success()
	}
	return Failure("revision %s not found in the first %d documents", short, n)
}

var hexToken = regexp.MustCompile(`(?i)\b[0-9a-f]{7,64}\b`)

// containsRevision reports whether text carries a hex token of at least
// ShortHashLength characters that agrees with hash on their common prefix.
func containsRevision(text, hash string) bool {
	for _, tok := range hexToken.FindAllString(text, -1) {
		tok = strings.ToLower(tok)
		if strings.HasPrefix(tok, hash) || strings.HasPrefix(hash, tok) {
			return true
		}
	}
	return false
}

// ShortHash extracts the abbreviated commit hash from a GIT_INFO descriptor
// such as "abc1234-dirty (main)", lowercased. Values that do not start with
// a hex hash (pinned overrides) yield "".
func ShortHash(gitInfo string) string {
	fields := strings.Fields(gitInfo)
	if len(fields) == 0 {
		return ""
	}
	h := strings.ToLower(strings.TrimSuffix(fields[0], "-dirty"))
	if len(h) < git.ShortHashLength || !isHex(h) {
		return ""
	}
	return h
}

func isHex(s string) bool {
	for _, r := range s {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}
