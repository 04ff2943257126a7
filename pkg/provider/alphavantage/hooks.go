package alphavantage

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"

	"github.com/go-resty/resty/v2"
	"github.com/zeromicro/go-zero/core/logx"
)

const redacted = "REDACTED"

var apiKeyParam = regexp.MustCompile(`(?i)(apikey=)[^&\s"']+`)

// installHooks logs each completed call by function and symbol only; the
// query string carries the api key.
func installHooks(rc *resty.Client) {
	rc.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		req := resp.Request
		logx.WithContext(req.Context()).Debugf("alphavantage: function=%s symbol=%s status=%d took=%s",
			req.QueryParam.Get("function"), req.QueryParam.Get("symbol"), resp.StatusCode(), resp.Time())
		return nil
	})
	rc.OnError(func(req *resty.Request, err error) {
		logx.WithContext(req.Context()).Errorf("alphavantage: function=%s symbol=%s: %v",
			req.QueryParam.Get("function"), req.QueryParam.Get("symbol"), redactError(err))
	})
}

// redactError masks the api key in the URL net/http puts into transport
// errors. The wrapped cause is kept for errors.Is checks.
func redactError(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	return &url.Error{Op: ue.Op, URL: redactURL(ue.URL), Err: ue.Err}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return apiKeyParam.ReplaceAllString(raw, "${1}"+redacted)
	}
	q := u.Query()
	if q.Has("apikey") {
		q.Set("apikey", redacted)
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// logxLogger routes resty's internal messages through logx with the api key masked.
type logxLogger struct{}

func (logxLogger) Errorf(format string, v ...any) { logx.Error(redactText(format, v...)) }
func (logxLogger) Warnf(format string, v ...any)  { logx.Info(redactText(format, v...)) }
func (logxLogger) Debugf(format string, v ...any) { logx.Debug(redactText(format, v...)) }

func redactText(format string, v ...any) string {
	return "resty: " + apiKeyParam.ReplaceAllString(fmt.Sprintf(format, v...), "${1}"+redacted)
}
