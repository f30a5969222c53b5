// Package stores holds the client-side copies of store listings: the
// filtered public page, the caller's own stores, the admin moderation queue,
// the detail view and search results.
//
// A listing can sit in several collections at once. Every successful
// mutation goes through ApplyUpdate or ApplyRemoval, which rewrite every
// copy of that id, so the collections never disagree.
package stores
