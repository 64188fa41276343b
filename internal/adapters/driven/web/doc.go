// Package web fetches linked pages and files for the upload pipeline and
// talks to the local extraction service that renders HTML pages.
package web
