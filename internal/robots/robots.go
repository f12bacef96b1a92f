// Package robots reads the registry's robots.txt so a run can honour its
// Crawl-delay and report detail paths the origin asks crawlers to avoid.
package robots

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/hyperifyio/insertwatch/internal/fetch"
)

// Rules is a parsed robots.txt.
type Rules struct {
	Groups []Group
}

// Group holds the directives following one or more User-agent lines.
// CrawlDelay is zero when the group sets none.
type Group struct {
	Agents     []string
	Allow      []string
	Disallow   []string
	CrawlDelay time.Duration
}

// URLFor returns the robots.txt location for the origin of rawURL.
func URLFor(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported url scheme: %q", rawURL)
	}
	return u.Scheme + "://" + u.Host + "/robots.txt", nil
}

// Fetch downloads and parses the robots.txt of base's origin through c, so
// the file shares the client's cache and user agent. A 4xx response means
// there are no rules.
func Fetch(ctx context.Context, c *fetch.Client, base string) (Rules, error) {
	robotsURL, err := URLFor(base)
	if err != nil {
		return Rules{}, err
	}
	body, _, err := c.Get(ctx, robotsURL)
	if err != nil {
		var se *fetch.StatusError
		if errors.As(err, &se) && se.Code >= 400 && se.Code < 500 {
			return Rules{}, nil
		}
		return Rules{}, err
	}
	return Parse(string(body)), nil
}

// Parse reads robots.txt text. Unknown directives are ignored.
func Parse(text string) Rules {
	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var groups []Group
	current := Group{}
	hasRules := func() bool {
		return len(current.Allow) > 0 || len(current.Disallow) > 0 || current.CrawlDelay > 0
	}
	flush := func() {
		if len(current.Agents) == 0 && !hasRules() {
			return
		}
		groups = append(groups, current)
		current = Group{}
	}
	for scanner.Scan() {
		line := scanner.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		line = strings.TrimSpace(line)
		colon := strings.IndexByte(line, ':')
		if colon <= 0 {
			continue
		}
		key := strings.ToLower(strings.TrimSpace(line[:colon]))
		val := strings.TrimSpace(line[colon+1:])
		switch key {
		case "user-agent", "useragent":
			if len(current.Agents) > 0 && hasRules() {
				flush()
			}
			current.Agents = append(current.Agents, strings.ToLower(val))
		case "allow":
			current.Allow = append(current.Allow, val)
		case "disallow":
			current.Disallow = append(current.Disallow, val)
		case "crawl-delay", "crawldelay":
			if secs, err := strconv.ParseFloat(val, 64); err == nil && secs > 0 {
				current.CrawlDelay = time.Duration(secs * float64(time.Second))
			}
		}
	}
	flush()
	return Rules{Groups: groups}
}

// IsAllowed reports whether path (query included) may be fetched by
// userAgent. The most specific matching group applies; within it the longest
// matching pattern wins and Allow wins ties. No match means allowed.
func (r Rules) IsAllowed(userAgent, path string) bool {
	g, ok := r.group(userAgent)
	if !ok {
		return true
	}
	bestScore := -1
	bestAllow := true
	evaluate := func(patterns []string, allow bool) {
		for _, p := range patterns {
			if p == "" || !patternMatches(p, path) {
				continue
			}
			score := specificity(p)
			if score > bestScore || (score == bestScore && allow && !bestAllow) {
				bestScore = score
				bestAllow = allow
			}
		}
	}
	evaluate(g.Disallow, false)
	evaluate(g.Allow, true)
	return bestAllow
}

// CrawlDelay returns the delay requested of userAgent, or zero.
func (r Rules) CrawlDelay(userAgent string) time.Duration {
	g, ok := r.group(userAgent)
	if !ok {
		return 0
	}
	return g.CrawlDelay
}

// group picks the group whose agent token is the longest substring of
// userAgent; "*" matches anything but loses to a named agent.
func (r Rules) group(userAgent string) (Group, bool) {
	ua := strings.ToLower(strings.TrimSpace(userAgent))
	best, bestScore := -1, -1
	for i, g := range r.Groups {
		for _, token := range g.Agents {
			token = strings.TrimSpace(token)
			score := -1
			switch {
			case token == "":
			case token == "*":
				score = 0
			case strings.Contains(ua, token):
				score = len(token)
			}
			if score > bestScore {
				best, bestScore = i, score
			}
		}
	}
	if best < 0 {
		return Group{}, false
	}
	return r.Groups[best], true
}

// patternMatches matches a robots pattern anchored at the start of path.
// '*' matches any run of characters and a trailing '$' anchors the end.
func patternMatches(pattern, path string) bool {
	anchorEnd := strings.HasSuffix(pattern, "$")
	pattern = strings.TrimSuffix(pattern, "$")
	var b strings.Builder
	b.WriteString("^")
	for i, part := range strings.Split(pattern, "*") {
		if i > 0 {
			b.WriteString(".*")
		}
		b.WriteString(regexp.QuoteMeta(part))
	}
	if anchorEnd {
		b.WriteString("$")
	}
	re, err := regexp.Compile(b.String())
	if err != nil {
		return false
	}
	return re.MatchString(path)
}

func specificity(pattern string) int {
	return len(strings.ReplaceAll(strings.TrimSuffix(pattern, "$"), "*", ""))
}
