package fetcher

import (
	"context"
	"io"
	"net"
	"net/url"
	"os"
	"time"

	"github.com/jlaffaye/ftp"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// ftpEndpoint is a resolved ftp:// source: a dialable address and the
// remote file path.
type ftpEndpoint struct {
	addr string
	path string
}

// splitFTPSource resolves an ftp:// URL, defaulting the port to 21.
func splitFTPSource(rawURL string) (ftpEndpoint, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ftpEndpoint{}, eris.Wrap(err, "fetch: parse ftp url")
	}
	if u.Scheme != "ftp" {
		return ftpEndpoint{}, eris.Errorf("fetch: expected ftp scheme, got %q", u.Scheme)
	}
	if u.Path == "" {
		return ftpEndpoint{}, eris.New("fetch: ftp url has no file path")
	}

	addr := u.Host
	if _, _, splitErr := net.SplitHostPort(addr); splitErr != nil {
		addr = net.JoinHostPort(addr, "21")
	}
	return ftpEndpoint{addr: addr, path: u.Path}, nil
}

// fetchFTP retrieves one document from an anonymous FTP drop into dest.
// Some logistics partners still publish invoices this way.
func fetchFTP(ctx context.Context, rawURL, dest string, timeout time.Duration) (int64, error) {
	ep, err := splitFTPSource(rawURL)
	if err != nil {
		return 0, err
	}

	zap.L().Debug("fetch: ftp retrieve", zap.String("addr", ep.addr), zap.String("path", ep.path))

	conn, err := ftp.Dial(ep.addr, ftp.DialWithTimeout(timeout), ftp.DialWithContext(ctx))
	if err != nil {
		return 0, eris.Wrapf(err, "fetch: ftp dial %s", ep.addr)
	}
	defer conn.Quit() //nolint:errcheck

	if err := conn.Login("anonymous", "anonymous@"); err != nil {
		return 0, eris.Wrap(err, "fetch: ftp login")
	}

	resp, err := conn.Retr(ep.path)
	if err != nil {
		return 0, eris.Wrapf(err, "fetch: ftp retrieve %s", ep.path)
	}
	defer resp.Close()

	file, err := os.Create(dest)
	if err != nil {
		return 0, eris.Wrapf(err, "fetch: create %s", dest)
	}
	defer file.Close()

	n, err := io.Copy(file, resp)
	if err != nil {
		return n, eris.Wrapf(err, "fetch: write %s", dest)
	}
	return n, nil
}
