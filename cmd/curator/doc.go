// Command curator manages event sources, runs the scrape pipeline, and
// drives staged records through review and import. The same binary hosts the
// scheduling daemon.
package main
