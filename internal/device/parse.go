package device

import (
	"log/slog"
	"strconv"
	"strings"
)

// Defaults applied when a detailed record is missing or unparseable.
const (
	DefaultSampleFormat = "s16le"
	DefaultChannels     = 2
	DefaultSampleRate   = 48000
)

// ShortEntry is one line of a `pactl list ... short` listing.
type ShortEntry struct {
	// Index is -1 when the first field is not a non-negative integer.
	Index int
	Name  string
}

// ParseShortListing extracts (index, name) pairs from the tab-separated
// short listing, in listing order. Lines with fewer than four fields are
// skipped entirely rather than producing partial entries.
func ParseShortListing(text string) []ShortEntry {
	var entries []ShortEntry
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.Split(line, "\t")
		if len(parts) < 4 {
			slog.Debug("Skipping malformed listing line", "line", line)
			continue
		}
		index := -1
		if n, err := strconv.Atoi(parts[0]); err == nil && n >= 0 {
			index = n
		}
		entries = append(entries, ShortEntry{Index: index, Name: parts[1]})
	}
	return entries
}

// EndpointDetails is the parsed form of one record in a detailed listing.
type EndpointDetails struct {
	Description  string
	SampleFormat string
	Channels     int
	SampleRate   int
	Muted        bool
	Volume       string
	Virtual      bool
	Properties   map[string]string
}

func defaultDetails(name string) EndpointDetails {
	return EndpointDetails{
		Description:  name,
		SampleFormat: DefaultSampleFormat,
		Channels:     DefaultChannels,
		SampleRate:   DefaultSampleRate,
		Properties:   map[string]string{},
	}
}

// parseState tracks where the detailed-listing scan currently is.
type parseState int

const (
	stateOutside parseState = iota
	stateInRecord
	stateInProperties
)

// ParseDetailedListing scans the verbose `pactl list sinks`/`sources`
// output for the record whose Name: field exactly equals name and returns
// its details. A name absent from the output yields all-default details,
// never an error; the caller decides whether that is acceptable.
//
// Record fields are indented one tab, nested Properties entries two tabs.
// The properties block ends at the first record-level line that follows
// it, and a new record header or a foreign Name: line ends the record.
func ParseDetailedListing(text, name string) EndpointDetails {
	details := defaultDetails(name)
	props := map[string]string{}
	var driver, ownerModule string
	state := stateOutside

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, " \t\r")

		if strings.HasPrefix(line, "Sink #") || strings.HasPrefix(line, "Source #") {
			state = stateOutside
			continue
		}
		if strings.HasPrefix(line, "\tName:") {
			if fieldValue(line) == name {
				state = stateInRecord
			} else {
				state = stateOutside
			}
			continue
		}
		if state == stateOutside {
			continue
		}

		if state == stateInProperties {
			if strings.HasPrefix(line, "\t\t") {
				key, value, ok := strings.Cut(strings.TrimSpace(line), "=")
				if ok {
					props[strings.TrimSpace(key)] = strings.Trim(strings.TrimSpace(value), `"`)
				}
				continue
			}
			// First record-level line after the sub-block closes it.
			state = stateInRecord
		}

		switch {
		case strings.HasPrefix(line, "\tDescription:"):
			details.Description = fieldValue(line)
		case strings.HasPrefix(line, "\tDriver:"):
			driver = fieldValue(line)
		case strings.HasPrefix(line, "\tOwner Module:"):
			ownerModule = fieldValue(line)
		case strings.HasPrefix(line, "\tSample Specification:"):
			parseSampleSpec(fieldValue(line), &details)
		case strings.HasPrefix(line, "\tMute:"):
			details.Muted = strings.EqualFold(fieldValue(line), "yes")
		case strings.HasPrefix(line, "\tVolume:"):
			details.Volume = fieldValue(line)
		case strings.HasPrefix(line, "\tProperties:"):
			state = stateInProperties
		}
	}

	details.Properties = props
	details.Virtual = isVirtual(name, driver, ownerModule)
	return details
}

// fieldValue returns the trimmed text after the first colon.
func fieldValue(line string) string {
	_, value, _ := strings.Cut(line, ":")
	return strings.TrimSpace(value)
}

// parseSampleSpec splits a specification such as "s16le 2ch 48000Hz" into
// format, channel count and sample rate. Unparseable tokens keep the
// defaults already present in details.
func parseSampleSpec(spec string, details *EndpointDetails) {
	tokens := strings.Fields(spec)
	if len(tokens) == 0 {
		return
	}
	details.SampleFormat = tokens[0]
	for _, token := range tokens[1:] {
		switch {
		case strings.HasSuffix(token, "ch"):
			if n, err := strconv.Atoi(strings.TrimSuffix(token, "ch")); err == nil && n > 0 {
				details.Channels = n
			}
		case strings.HasSuffix(token, "Hz"):
			if n, err := strconv.Atoi(strings.TrimSuffix(token, "Hz")); err == nil && n > 0 {
				details.SampleRate = n
			}
		}
	}
}

// isVirtual classifies an endpoint as virtual when its name, driver or
// owner module mentions a null device. Evaluated once after the record
// scan completes, never from a field inside the record.
func isVirtual(name, driver, ownerModule string) bool {
	if strings.Contains(strings.ToLower(name), "null") {
		return true
	}
	if strings.Contains(strings.ToLower(driver), "null") {
		return true
	}
	if ownerModule != "" && ownerModule != "n/a" && strings.Contains(strings.ToLower(ownerModule), "null") {
		return true
	}
	return false
}
