package sitecms

import (
	"net/http"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/sitecms/blob"
)

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// resolveImage turns an image field into a stored URL. Data URLs are uploaded
// into folder; /storage/ URLs and absolute http(s) URLs are kept as given.
func (a *App) resolveImage(field, value string, folder blob.Folder) (string, error) {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		return "", nil
	case blob.IsDataURL(value):
		res := a.Storage.Upload(value, folder)
		if res.Success {
			return res.URL, nil
		}
		switch res.Code {
		case blob.CodeInvalidFormat, blob.CodeFileTooLarge, blob.CodeInvalidFolder:
			return "", echo.NewHTTPError(http.StatusBadRequest, apiError{Error: field + ": " + res.Error})
		}
		return "", echo.NewHTTPError(http.StatusInternalServerError, apiError{Error: "Failed to upload " + field, Details: res.Error})
	case strings.HasPrefix(value, blob.URLPrefix):
		return value, nil
	}
	if u, err := url.Parse(value); err == nil && (u.Scheme == "http" || u.Scheme == "https") && u.Host != "" {
		return value, nil
	}
	return "", badRequest(field + " must be a data URL, a /storage/ URL or an absolute URL")
}

// resolveImages resolves each entry of a gallery-style image list.
func (a *App) resolveImages(field string, values []string, folder blob.Folder) ([]string, error) {
	out := make([]string, 0, len(values))
	for _, v := range values {
		u, err := a.resolveImage(field, v, folder)
		if err != nil {
			return nil, err
		}
		if u != "" {
			out = append(out, u)
		}
	}
	return out, nil
}

// queryBool parses an optional boolean query parameter. Missing or
// unparsable values yield nil.
func queryBool(c echo.Context, name string) *bool {
	v := c.QueryParam(name)
	if v == "" {
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return nil
	}
	return &b
}

// queryInt parses a non-negative integer query parameter.
func queryInt(c echo.Context, name string) (int, error) {
	v := c.QueryParam(name)
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, badRequest(name + " must be a non-negative integer")
	}
	return n, nil
}
