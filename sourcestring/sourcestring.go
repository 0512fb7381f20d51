// Package sourcestring parses and renders the connection source string
// from spec §6:
//
//	proto[+proto_ext]://[user[:password]@]host[:port]/path?opt1=...&opt2=...
//
// proto names the dialect (mysql, postgres, oracle, sqlite, interbase,
// mssql); proto_ext, when present, selects a specific driver for a
// dialect that has more than one. Everything after "?" becomes a
// key/value option dictionary; unrecognized keys are kept rather than
// rejected, since a given Dialect may define options this package
// knows nothing about.
//
// Grounded on the teacher's per-dialect DSN builders
// (adapter/mysql.mysqlBuildDSN, database/postgres.postgresBuildDSN),
// generalized from "driver.Config struct -> formatted DSN string" to
// "arbitrary URL-shaped string -> Source struct", using the stdlib
// net/url parser rather than the teacher's hand-rolled fmt.Sprintf
// assembly, since this module's format is itself URL-shaped.
package sourcestring

import (
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/yborm/yborm-go/ybormerr"
)

// Source is a parsed connection source string.
type Source struct {
	Proto    string // dialect name, lowercased (e.g. "mysql")
	ProtoExt string // driver selector after "+", e.g. "mysql+unix" -> "unix"
	User     string
	Password string
	HasAuth  bool
	Host     string
	Port     int // 0 if unspecified
	Path     string
	Options  map[string]string
}

// Parse decodes s into a Source (spec §6). Percent-encoded reserved
// characters in the user/password/host/path/option components are
// decoded per net/url's usual rules.
func Parse(s string) (Source, error) {
	u, err := url.Parse(s)
	if err != nil {
		return Source{}, ybormerr.New(ybormerr.Configuration, "invalid source string %q: %v", s, err)
	}
	if u.Scheme == "" {
		return Source{}, ybormerr.New(ybormerr.Configuration, "source string %q has no proto", s)
	}

	proto, protoExt, _ := strings.Cut(u.Scheme, "+")

	src := Source{
		Proto:    strings.ToLower(proto),
		ProtoExt: strings.ToLower(protoExt),
		Path:     strings.TrimPrefix(u.Path, "/"),
		Options:  make(map[string]string),
	}

	if u.User != nil {
		src.HasAuth = true
		src.User = u.User.Username()
		src.Password, _ = u.User.Password()
	}

	host := u.Hostname()
	src.Host = host
	if portStr := u.Port(); portStr != "" {
		port, err := strconv.Atoi(portStr)
		if err != nil {
			return Source{}, ybormerr.New(ybormerr.Configuration, "source string %q has a non-numeric port %q", s, portStr)
		}
		src.Port = port
	}

	query, err := url.ParseQuery(u.RawQuery)
	if err != nil {
		return Source{}, ybormerr.New(ybormerr.Configuration, "invalid options in source string %q: %v", s, err)
	}
	for k, vs := range query {
		if len(vs) > 0 {
			src.Options[k] = vs[0]
		}
	}

	return src, nil
}

// String re-serializes src, percent-encoding reserved characters as
// net/url requires. The password is hidden (replaced by "***") unless
// showPassword is true, matching spec §6's "re-serialization hides the
// password by default."
func (src Source) String(showPassword bool) string {
	scheme := src.Proto
	if src.ProtoExt != "" {
		scheme += "+" + src.ProtoExt
	}

	u := &url.URL{
		Scheme: scheme,
		Path:   "/" + src.Path,
	}
	if src.HasAuth {
		if showPassword && src.Password != "" {
			u.User = url.UserPassword(src.User, src.Password)
		} else if src.Password != "" {
			u.User = url.UserPassword(src.User, "***")
		} else {
			u.User = url.User(src.User)
		}
	}
	if src.Port != 0 {
		u.Host = src.Host + ":" + strconv.Itoa(src.Port)
	} else {
		u.Host = src.Host
	}

	if len(src.Options) > 0 {
		q := url.Values{}
		for k, v := range src.Options {
			q.Set(k, v)
		}
		u.RawQuery = q.Encode()
	}

	return u.String()
}

// Env-variable names read by FromEnvironment (spec §6).
const (
	EnvURL    = "YBORM_URL"
	EnvDriver = "YBORM_DRIVER"
	EnvDBType = "YBORM_DBTYPE"
	EnvDB     = "YBORM_DB"
	EnvUser   = "YBORM_USER"
	EnvPasswd = "YBORM_PASSWD"
)

// FromEnvironment builds a Source from the process environment (spec
// §6): either YBORM_URL directly, or the YBORM_DRIVER/YBORM_DBTYPE/
// YBORM_DB triple with optional YBORM_USER/YBORM_PASSWD layered on
// top. Neither form being present is Configuration-kind error, mirroring
// the teacher's direct os.LookupEnv reads for MYSQL_PWD/LOG_LEVEL rather
// than routing through a config-file layer.
func FromEnvironment() (Source, error) {
	if raw, ok := os.LookupEnv(EnvURL); ok {
		src, err := Parse(raw)
		if err != nil {
			return Source{}, err
		}
		applyEnvAuth(&src)
		return src, nil
	}

	dbtype, hasType := os.LookupEnv(EnvDBType)
	db, hasDB := os.LookupEnv(EnvDB)
	if !hasType || !hasDB {
		return Source{}, ybormerr.New(ybormerr.Configuration,
			"no connection source in environment: set %s or %s+%s", EnvURL, EnvDBType, EnvDB)
	}

	src := Source{
		Proto:   strings.ToLower(dbtype),
		Path:    db,
		Options: make(map[string]string),
	}
	if driver, ok := os.LookupEnv(EnvDriver); ok {
		src.ProtoExt = strings.ToLower(driver)
	}
	applyEnvAuth(&src)
	return src, nil
}

func applyEnvAuth(src *Source) {
	user, hasUser := os.LookupEnv(EnvUser)
	passwd, hasPasswd := os.LookupEnv(EnvPasswd)
	if hasUser || hasPasswd {
		src.HasAuth = true
		src.User = user
		src.Password = passwd
	}
}
