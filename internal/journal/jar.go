package journal

import (
	"context"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"sync"
	"time"

	"golang.org/x/net/publicsuffix"
)

// Jar is an http.CookieJar whose cookies survive the process. Matching is
// delegated to net/http/cookiejar; every cookie the server sets is also
// written to the cookies table and reloaded by the next Jar.
//
// The session cookie is stored as received and never interpreted.
type Jar struct {
	store *Store
	mem   *cookiejar.Jar
	now   func() time.Time

	mu      sync.Mutex
	lastErr error
}

var _ http.CookieJar = (*Jar)(nil)

type cookieRow struct {
	Host     string `db:"host"`
	Path     string `db:"path"`
	Name     string `db:"name"`
	Value    string `db:"value"`
	Domain   string `db:"domain"`
	Expires  string `db:"expires"`
	Secure   bool   `db:"secure"`
	HTTPOnly bool   `db:"http_only"`
}

// Jar loads the persisted cookies, dropping expired ones.
func (s *Store) Jar(ctx context.Context) (*Jar, error) {
	mem, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	j := &Jar{store: s, mem: mem, now: time.Now}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM cookies WHERE expires != '' AND expires <= ?`,
		j.now().UTC().Format(time.RFC3339)); err != nil {
		return nil, fmt.Errorf("prune cookies: %w", err)
	}

	var rows []cookieRow
	if err := s.db.SelectContext(ctx, &rows, `
		SELECT host, path, name, value, domain, expires, secure, http_only
		FROM cookies
		ORDER BY host, path, name
	`); err != nil {
		return nil, fmt.Errorf("load cookies: %w", err)
	}

	for _, r := range rows {
		scheme := "http"
		if r.Secure {
			scheme = "https"
		}
		c := &http.Cookie{
			Name:     r.Name,
			Value:    r.Value,
			Path:     r.Path,
			Domain:   r.Domain,
			Secure:   r.Secure,
			HttpOnly: r.HTTPOnly,
		}
		if r.Expires != "" {
			if exp, err := time.Parse(time.RFC3339, r.Expires); err == nil {
				c.Expires = exp
			}
		}
		mem.SetCookies(&url.URL{Scheme: scheme, Host: r.Host, Path: r.Path}, []*http.Cookie{c})
	}
	return j, nil
}

func (j *Jar) Cookies(u *url.URL) []*http.Cookie {
	return j.mem.Cookies(u)
}

// SetCookies stores cookies in memory and persists them. A cookie that is
// deleted (MaxAge < 0 or already expired) is removed from the table.
// Persistence failures are kept for Err and never fail the request.
func (j *Jar) SetCookies(u *url.URL, cookies []*http.Cookie) {
	j.mem.SetCookies(u, cookies)

	host := u.Hostname()
	for _, c := range cookies {
		path := c.Path
		if path == "" {
			path = defaultPath(u.Path)
		}
		if err := j.persist(host, path, c); err != nil {
			j.mu.Lock()
			j.lastErr = err
			j.mu.Unlock()
		}
	}
}

// Err returns the last persistence error, if any.
func (j *Jar) Err() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastErr
}

func (j *Jar) persist(host, path string, c *http.Cookie) error {
	now := j.now()
	expired := c.MaxAge < 0 || (!c.Expires.IsZero() && !c.Expires.After(now))
	if expired {
		_, err := j.store.db.Exec(`DELETE FROM cookies WHERE host = ? AND path = ? AND name = ?`, host, path, c.Name)
		if err != nil {
			return fmt.Errorf("delete cookie %s: %w", c.Name, err)
		}
		return nil
	}

	var expires string
	switch {
	case c.MaxAge > 0:
		expires = now.Add(time.Duration(c.MaxAge) * time.Second).UTC().Format(time.RFC3339)
	case !c.Expires.IsZero():
		expires = c.Expires.UTC().Format(time.RFC3339)
	}

	_, err := j.store.db.Exec(`
		INSERT INTO cookies (host, path, name, value, domain, expires, secure, http_only)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(host, path, name) DO UPDATE SET
			value = excluded.value,
			domain = excluded.domain,
			expires = excluded.expires,
			secure = excluded.secure,
			http_only = excluded.http_only
	`, host, path, c.Name, c.Value, c.Domain, expires, c.Secure, c.HttpOnly)
	if err != nil {
		return fmt.Errorf("save cookie %s: %w", c.Name, err)
	}
	return nil
}

// defaultPath is the RFC 6265 section 5.1.4 default cookie path.
func defaultPath(p string) string {
	if p == "" || p[0] != '/' {
		return "/"
	}
	i := len(p) - 1
	for i > 0 && p[i] != '/' {
		i--
	}
	if i == 0 {
		return "/"
	}
	return p[:i]
}
