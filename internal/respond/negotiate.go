package respond

import (
	"strconv"
	"strings"
)

// PrefersJSON reports whether the Accept header value indicates a
// preference for application/json over HTML. The most preferred offer
// wins; ties break toward the more specific media type, then toward
// header order. An empty or fully rejected header defaults to HTML.
func PrefersJSON(acceptHeaderValue string) bool {
	if acceptHeaderValue == "" {
		return false
	}

	type offer struct {
		mediaType string
		q         float64
		specific  bool // not a wildcard type
		order     int
	}
	var offers []offer

	for i, partStr := range strings.Split(acceptHeaderValue, ",") {
		partStr = strings.TrimSpace(partStr)
		mediaType := partStr
		qValue := 1.0

		if idx := strings.Index(partStr, ";"); idx != -1 {
			mediaType = strings.TrimSpace(partStr[:idx])
			for _, param := range strings.Split(partStr[idx+1:], ";") {
				param = strings.TrimSpace(param)
				if !strings.HasPrefix(param, "q=") {
					continue
				}
				if q, err := strconv.ParseFloat(param[2:], 64); err == nil && q >= 0 && q <= 1 {
					qValue = q
				} else {
					qValue = 0
				}
				break
			}
		}

		// A q-value of 0 rejects the media type outright.
		if qValue > 0 {
			offers = append(offers, offer{
				mediaType: strings.ToLower(mediaType),
				q:         qValue,
				specific:  !strings.HasSuffix(mediaType, "/*") && mediaType != "*/*",
				order:     i,
			})
		}
	}

	best := -1
	for i, o := range offers {
		if best == -1 {
			best = i
			continue
		}
		b := offers[best]
		if o.q != b.q {
			if o.q > b.q {
				best = i
			}
			continue
		}
		if o.specific != b.specific {
			if o.specific {
				best = i
			}
			continue
		}
		// Equal q and specificity: earlier header position already won.
	}

	return best >= 0 && offers[best].mediaType == "application/json"
}
