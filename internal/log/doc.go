// Package log provides an slog handler that keeps credentials and
// personal data out of log output.
//
// A crawl handles e-mail addresses and phone numbers of the companies it
// profiles. SecureHandler masks attributes whose keys name such data
// (email, phone, cookie, authorization, ...) and masks e-mail local parts
// and URL credentials wherever they appear in a message or string value.
// Masking also applies in verbose mode.
//
// # Usage
//
//	logger := log.NewSecureLogger(os.Stderr, verbose)
//	logger.Debug("homepage parsed", "emails", emails) // emails=***REDACTED***
//	slog.SetDefault(logger)
package log
