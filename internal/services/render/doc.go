// Package render calls the headless-browser rendering service that turns a
// page URL into fully rendered HTML.
package render
