// Package main provides the entry point for the bizscan CLI.
//
// bizscan builds a business profile of a company website: it fetches the
// homepage and a fixed list of priority pages, extracts contact details
// and trust keywords, and prints the result as JSON.
//
// Usage:
//
//	bizscan <website_url>
//	bizscan batch --list <file>
//
// See --help for all available options.
package main

func main() {
	Execute()
}
