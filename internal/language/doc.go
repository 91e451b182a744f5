// Package language normalizes language codes and guesses the spoken language
// of a short transcript from keyword hits.
package language
