package user

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ladlehq/ladle/pkg/logger"
)

var log = logger.Get("Credentials")

// DefaultUserID is the identifier the mandatory default credential is
// bound to, and the user an import request is attributed to when it names
// no user of its own.
const DefaultUserID = 1

// userTokenPattern recognises per-user credential variables of the form
// MEALIE_TOKEN_USER_<id>=<token> in the process environment.
var userTokenPattern = regexp.MustCompile(`^MEALIE_TOKEN_USER_(\d+)$`)

// Credentials maps a user identifier to the Mealie API token bound to it.
// It is built once at startup and must not be mutated afterwards.
type Credentials map[int]string

// DiscoverCredentials builds the user to token mapping from the mandatory
// default token plus any additional per-user tokens found in the given
// environment (as returned by os.Environ). Entries with an empty token
// are ignored.
func DiscoverCredentials(defaultToken string, environ []string) Credentials {
	credentials := Credentials{DefaultUserID: defaultToken}

	for _, entry := range environ {
		key, value, found := strings.Cut(entry, "=")
		if !found || value == "" {
			continue
		}

		match := userTokenPattern.FindStringSubmatch(key)
		if match == nil {
			continue
		}

		userID, err := strconv.Atoi(match[1])
		if err != nil {
			continue
		}

		log.Emit(logger.NEW, "Discovered credential for additional user %d\n", userID)
		credentials[userID] = value
	}

	return credentials
}
