// Package extract pulls business data out of page text.
//
// The Extractor turns HTML into visible text and scans it for e-mail
// addresses, phone numbers and trust-signal keywords. Classify maps a
// priority path to the report field it fills.
//
// The phone pattern is loose: any run of nine to sixteen digits, spaces
// and hyphens starting with a digit matches, so dates and ID numbers show
// up as phone numbers too.
package extract
