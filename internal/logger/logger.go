package logger

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"example.com/dirserve/internal/config"
)

// LogFields carries structured context attached to a log entry.
type LogFields map[string]interface{}

// parsedProxiesContainer holds pre-parsed trusted proxy IP addresses and
// CIDR blocks.
type parsedProxiesContainer struct {
	cidrs []*net.IPNet
	ips   []net.IP
}

// Logger wraps a zerolog error logger and an optional zerolog access
// logger. It owns any log files it opened.
type Logger struct {
	errorLog      zerolog.Logger
	accessLog     *zerolog.Logger
	accessCfg     config.AccessLogConfig
	parsedProxies parsedProxiesContainer
	files         []*os.File
}

func levelFromConfig(level config.LogLevel) zerolog.Level {
	switch level {
	case config.LogLevelDebug:
		return zerolog.DebugLevel
	case config.LogLevelWarning:
		return zerolog.WarnLevel
	case config.LogLevelError:
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// openTarget maps a log target ("stdout", "stderr" or a file path) to a
// writer. Opened files are returned so the Logger can close them.
func openTarget(target string) (io.Writer, *os.File, error) {
	switch target {
	case "", "stderr":
		return os.Stderr, nil, nil
	case "stdout":
		return os.Stdout, nil, nil
	default:
		f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file %s: %w", target, err)
		}
		return f, f, nil
	}
}

// NewLogger creates and configures a Logger from the logging section of
// the configuration.
func NewLogger(cfg *config.LoggingConfig) (*Logger, error) {
	if cfg == nil {
		return nil, fmt.Errorf("logging configuration cannot be nil")
	}

	l := &Logger{}

	errTarget := "stderr"
	if cfg.ErrorLog != nil {
		errTarget = cfg.ErrorLog.Target
	}
	errOut, errFile, err := openTarget(errTarget)
	if err != nil {
		return nil, err
	}
	if errFile != nil {
		l.files = append(l.files, errFile)
	}
	l.errorLog = zerolog.New(errOut).Level(levelFromConfig(cfg.LogLevel)).With().Timestamp().Logger()

	if cfg.AccessLog != nil && (cfg.AccessLog.Enabled == nil || *cfg.AccessLog.Enabled) {
		accOut, accFile, err := openTarget(cfg.AccessLog.Target)
		if err != nil {
			l.CloseLogFiles()
			return nil, err
		}
		if accFile != nil {
			l.files = append(l.files, accFile)
		}

		parsed, err := preParseTrustedProxies(cfg.AccessLog.TrustedProxies)
		if err != nil {
			l.CloseLogFiles()
			return nil, fmt.Errorf("failed to parse trusted proxies for access log: %w", err)
		}

		al := zerolog.New(accOut).With().Timestamp().Logger()
		l.accessLog = &al
		l.accessCfg = *cfg.AccessLog
		l.parsedProxies = parsed
	}

	return l, nil
}

// NewTestLogger returns a Logger that writes all entries to w at debug
// level, for use in tests.
func NewTestLogger(w io.Writer) *Logger {
	al := zerolog.New(w).With().Timestamp().Logger()
	return &Logger{
		errorLog:  zerolog.New(w).Level(zerolog.DebugLevel).With().Timestamp().Logger(),
		accessLog: &al,
	}
}

// NewDiscardLogger returns a Logger that drops everything.
func NewDiscardLogger() *Logger {
	return &Logger{errorLog: zerolog.Nop()}
}

func (l *Logger) emit(ev *zerolog.Event, msg string, fields LogFields) {
	for k, v := range fields {
		ev = ev.Interface(k, v)
	}
	ev.Msg(msg)
}

func (l *Logger) Debug(msg string, fields LogFields) { l.emit(l.errorLog.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields LogFields)  { l.emit(l.errorLog.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields LogFields)  { l.emit(l.errorLog.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields LogFields) { l.emit(l.errorLog.Error(), msg, fields) }

// Access writes one access log entry for a completed request.
func (l *Logger) Access(req *http.Request, status int, responseBytes int64, duration time.Duration) {
	if l.accessLog == nil {
		return
	}

	realIPHeader := ""
	if l.accessCfg.RealIPHeader != nil {
		realIPHeader = *l.accessCfg.RealIPHeader
	}
	remoteAddr := getRealClientIP(req.RemoteAddr, req.Header, realIPHeader, l.parsedProxies)

	ev := l.accessLog.Log().
		Str("remote_addr", remoteAddr).
		Str("protocol", req.Proto).
		Str("method", req.Method).
		Str("uri", req.RequestURI).
		Int("status", status).
		Int64("resp_bytes", responseBytes).
		Int64("duration_ms", duration.Milliseconds())
	if ua := req.UserAgent(); ua != "" {
		ev = ev.Str("user_agent", ua)
	}
	if ref := req.Referer(); ref != "" {
		ev = ev.Str("referer", ref)
	}
	ev.Send()
}

// CloseLogFiles closes any log files this Logger opened.
func (l *Logger) CloseLogFiles() {
	for _, f := range l.files {
		f.Close()
	}
	l.files = nil
}

// preParseTrustedProxies converts string representations of IPs and CIDRs
// into net.IP and *net.IPNet values for efficient checking.
func preParseTrustedProxies(proxyStrings []string) (parsedProxiesContainer, error) {
	container := parsedProxiesContainer{}

	for _, pStr := range proxyStrings {
		pStr = strings.TrimSpace(pStr)
		if pStr == "" {
			continue
		}
		if strings.Contains(pStr, "/") {
			_, ipNet, err := net.ParseCIDR(pStr)
			if err != nil {
				return parsedProxiesContainer{}, fmt.Errorf("invalid CIDR string in trusted_proxies '%s': %w", pStr, err)
			}
			container.cidrs = append(container.cidrs, ipNet)
		} else {
			ip := net.ParseIP(pStr)
			if ip == nil {
				return parsedProxiesContainer{}, fmt.Errorf("invalid IP string in trusted_proxies '%s'", pStr)
			}
			container.ips = append(container.ips, ip)
		}
	}
	return container, nil
}

func isIPTrusted(ip net.IP, trustedProxies parsedProxiesContainer) bool {
	if ip == nil {
		return false
	}
	for _, trustedCIDR := range trustedProxies.cidrs {
		if trustedCIDR.Contains(ip) {
			return true
		}
	}
	for _, trustedIP := range trustedProxies.ips {
		if trustedIP.Equal(ip) {
			return true
		}
	}
	return false
}

// getRealClientIP determines the client's real IP address. When a real-IP
// header is configured, the header chain is walked right to left and the
// first address not belonging to a trusted proxy wins; a malformed chain
// falls back to the direct peer address.
func getRealClientIP(remoteAddr string, headers http.Header, realIPHeaderName string, trustedProxies parsedProxiesContainer) string {
	var directPeerIP string
	host, _, err := net.SplitHostPort(remoteAddr)
	if err == nil {
		directPeerIP = host
	} else if ip := net.ParseIP(remoteAddr); ip != nil {
		directPeerIP = ip.String()
	} else {
		directPeerIP = remoteAddr
	}

	if realIPHeaderName == "" {
		return directPeerIP
	}
	headerValue := headers.Get(realIPHeaderName)
	if headerValue == "" {
		return directPeerIP
	}

	ipsInHeader := strings.Split(headerValue, ",")
	for i := len(ipsInHeader) - 1; i >= 0; i-- {
		ipStr := strings.TrimSpace(ipsInHeader[i])
		if ipStr == "" {
			continue
		}
		ip := net.ParseIP(ipStr)
		if ip == nil {
			return directPeerIP
		}
		if !isIPTrusted(ip, trustedProxies) {
			return ipStr
		}
	}

	// Every address in the header was trusted.
	return directPeerIP
}
