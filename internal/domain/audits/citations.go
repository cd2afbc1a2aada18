package audits

import (
	"net/url"
	"regexp"
	"sort"
	"strings"
)

// Explicit citation patterns. Bare domains are only accepted with a TLD from
// knownTLDs so ordinary words with dots don't turn into citations.
var (
	httpURLRe  = regexp.MustCompile(`https?://[^\s<>()\[\]{}"']+`)
	wwwURLRe   = regexp.MustCompile(`\bwww\.[a-zA-Z0-9][a-zA-Z0-9.-]*\.[a-zA-Z]{2,}(?:/[^\s<>()\[\]{}"']*)?`)
	bareURLRe  = regexp.MustCompile(`\b[a-zA-Z0-9][a-zA-Z0-9-]*(?:\.[a-zA-Z0-9-]+)*\.(?:com|org|net|io|co|ai|app|dev|edu|gov)\b(?:/[^\s<>()\[\]{}"']*)?`)
	mdLinkRe   = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
)

const trailingPunct = ".,;:!?)'\""

// minimum host length for a path-less bare-domain match; filters accidental
// short tokens like "a.co" picked out of prose
const minBareHostLen = 5

type citationCandidate struct {
	offset   int
	url      string
	title    string
	fromBare bool
}

// ExtractCitations returns the deduplicated (by normalized domain) citations
// of one response, in order of first appearance. Explicit URLs and markdown
// links are extracted; entities mentioned without any URL are synthesized as
// inferred citations so downstream consumers still see them as sources.
// Pure function: extracting twice from the same text yields the same list.
func ExtractCitations(text, brand string, aliases, competitors []string) []Citation {
	brandSlugs := make(map[string]bool, len(aliases)+1)
	for _, t := range append([]string{brand}, aliases...) {
		if s := slugify(t); s != "" {
			brandSlugs[s] = true
		}
	}

	var cands []citationCandidate

	// Markdown links first so their URLs are not re-claimed by the raw
	// URL patterns at the same offset with no title.
	claimed := make([][2]int, 0)
	for _, m := range mdLinkRe.FindAllStringSubmatchIndex(text, -1) {
		title := text[m[2]:m[3]]
		raw := text[m[4]:m[5]]
		cands = append(cands, citationCandidate{offset: m[0], url: raw, title: title})
		claimed = append(claimed, [2]int{m[0], m[1]})
	}

	for _, re := range []*regexp.Regexp{httpURLRe, wwwURLRe, bareURLRe} {
		for _, m := range re.FindAllStringIndex(text, -1) {
			if inside(claimed, m[0]) {
				continue
			}
			cands = append(cands, citationCandidate{
				offset:   m[0],
				url:      text[m[0]:m[1]],
				fromBare: re == bareURLRe,
			})
		}
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].offset < cands[j].offset })

	seen := make(map[string]bool)
	var out []Citation
	for _, c := range cands {
		norm, domain, ok := normalizeCitationURL(c.url, c.fromBare)
		if !ok || seen[domain] {
			continue
		}
		seen[domain] = true
		out = append(out, Citation{
			URL:        norm,
			Domain:     domain,
			Title:      c.title,
			Position:   len(out) + 1,
			BrandOwned: brandSlugs[domainLabel(domain)],
		})
	}

	// Implicit citations: entity mentioned by plain text, no URL for it yet.
	// The synthesized domain is a heuristic proxy, flagged as inferred.
	lower := strings.ToLower(text)
	type implicitTerm struct {
		name  string
		brand bool
	}
	var terms []implicitTerm
	for _, t := range append([]string{brand}, aliases...) {
		terms = append(terms, implicitTerm{name: t, brand: true})
	}
	for _, t := range competitors {
		terms = append(terms, implicitTerm{name: t, brand: false})
	}
	for _, t := range terms {
		name := strings.TrimSpace(t.name)
		if name == "" || !strings.Contains(lower, strings.ToLower(name)) {
			continue
		}
		slug := slugify(name)
		if slug == "" {
			continue
		}
		domain := slug + ".com"
		if seen[domain] {
			continue
		}
		seen[domain] = true
		out = append(out, Citation{
			URL:        "https://" + domain,
			Domain:     domain,
			Title:      name,
			Position:   len(out) + 1,
			BrandOwned: t.brand,
			Inferred:   true,
		})
	}

	return out
}

// normalizeCitationURL strips trailing punctuation, prepends https:// to
// protocol-less matches, and lowercases + de-www's the host.
func normalizeCitationURL(raw string, fromBare bool) (normURL, domain string, ok bool) {
	raw = strings.TrimRight(raw, trailingPunct)
	if raw == "" {
		return "", "", false
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || !strings.Contains(u.Host, ".") {
		return "", "", false
	}
	host := strings.ToLower(u.Hostname())
	if fromBare && (u.Path == "" || u.Path == "/") && len(host) < minBareHostLen {
		return "", "", false
	}
	domain = strings.TrimPrefix(host, "www.")
	if domain == "" {
		return "", "", false
	}
	return raw, domain, true
}

// domainLabel returns the leftmost label of a normalized domain.
func domainLabel(domain string) string {
	if i := strings.Index(domain, "."); i > 0 {
		return domain[:i]
	}
	return domain
}

// slugify lowercases a name and strips everything non-alphanumeric.
func slugify(name string) string {
	return nonAlnumRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(name)), "")
}

func inside(spans [][2]int, pos int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
	}
	return false
}
