// Package funding stores funding agencies and the grants they award.
package funding
