package urlinfo

import (
	"strings"

	"golang.org/x/net/publicsuffix"
)

// classifyRegisteredDomain populates subdomain/rootDomain/suffix from
// info.host using the Public Suffix List. Hosts with no recognized
// registered domain (IP literals, "localhost", single-label hosts) leave
// hasRegDomain false; classification then falls back to bare-host
// comparison.
func classifyRegisteredDomain(info *URLInfo) {
	if looksLikeIPOrUnregistrable(info.host) {
		return
	}

	suffix, icann := publicsuffix.PublicSuffix(info.host)
	if !icann {
		return
	}

	registered, err := publicsuffix.EffectiveTLDPlusOne(info.host)
	if err != nil {
		return
	}

	info.suffix = suffix
	info.rootDomain = registered
	info.hasRegDomain = true

	if sub := strings.TrimSuffix(info.host, "."+registered); sub != info.host {
		info.subdomain = sub
	}
}

func looksLikeIPOrUnregistrable(host string) bool {
	if host == "localhost" {
		return true
	}
	if strings.Count(host, ".") == 0 {
		return true
	}
	allDigitsAndDots := true
	for i := 0; i < len(host); i++ {
		c := host[i]
		if !(c >= '0' && c <= '9') && c != '.' {
			allDigitsAndDots = false
			break
		}
	}
	if allDigitsAndDots {
		return true
	}
	if strings.Contains(host, ":") {
		return true // IPv6 literal
	}
	return false
}

// Classify reports self's relationship to base: Internal iff their
// registered domains match exactly; InternalSubdomain iff the registered
// domains match but the subdomain differs; External otherwise. If either
// side lacks a registered domain, comparison falls back to the bare host
// and the result is Unknown unless the hosts are identical (Internal).
func Classify(self, base URLInfo) Classification {
	if !self.hasRegDomain || !base.hasRegDomain {
		if self.host == base.host {
			return Internal
		}
		return Unknown
	}

	if self.rootDomain != base.rootDomain {
		return External
	}
	if self.subdomain == base.subdomain {
		return Internal
	}
	return InternalSubdomain
}
