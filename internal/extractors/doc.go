// Package extractors provides implementations of the Extractor interface
// for the supported upload formats. Each extractor turns the raw bytes of
// one MIME type into text.
//
// Extractors are registered with a Registry at startup.
package extractors
