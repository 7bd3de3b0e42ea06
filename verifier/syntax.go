package verifier

import (
	"strings"

	"github.com/badoux/checkmail"
)

// CheckSyntax reports whether the address is structurally valid. Pure;
// no network I/O.
func CheckSyntax(email string) error {
	return checkmail.ValidateFormat(email)
}

// SplitAddress decomposes an address into local part and domain.
func SplitAddress(email string) (local, domain string, ok bool) {
	at := strings.LastIndex(email, "@")
	if at <= 0 || at == len(email)-1 {
		return "", "", false
	}
	return email[:at], email[at+1:], true
}

// SuggestTypo returns the likely intended domain for common provider
// misspellings.
func SuggestTypo(domain string) (string, bool) {
	suggested, ok := commonTypos[domain]
	return suggested, ok
}

func IsDisposable(domain string) bool {
	return disposableDomains[domain]
}

func IsFreeProvider(domain string) bool {
	return freeEmailProviders[domain]
}

func IsRoleAccount(local string) bool {
	return roleAccounts[local]
}

// IsSpamTrap flags addresses that look like monitoring traps: known
// trap domains, or local parts carrying trap keywords.
func IsSpamTrap(local, domain string) bool {
	if spamTrapDomains[domain] {
		return true
	}
	for _, kw := range spamTrapKeywords {
		if strings.Contains(local, kw) {
			return true
		}
	}
	return false
}

// IsAbuse flags feedback-loop and complaint handling addresses.
func IsAbuse(local, domain string) bool {
	return abuseAccounts[local] || abuseDomains[domain]
}

// IsToxic flags domains with a history of complaints or litigation
// against senders.
func IsToxic(domain string) bool {
	return toxicDomains[domain]
}

func matchesAny(host string, patterns []string) bool {
	host = strings.ToLower(host)
	for _, p := range patterns {
		if strings.Contains(host, p) {
			return true
		}
	}
	return false
}
