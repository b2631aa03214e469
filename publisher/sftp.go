package publisher

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"path"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"pixforge/logger"
)

const sftpHandshakeTimeout = 10 * time.Second

// sftpTarget is the parsed form of an sftp access info map.
type sftpTarget struct {
	addr       string
	remotePath string
	config     *ssh.ClientConfig
}

// parseSFTPAccess reads host, user and remotePath (required), port (default
// 22), password or privateKey (base64 or raw PEM; the key wins when both are
// set) and hostKey (an authorized_keys line; unchecked when empty).
func parseSFTPAccess(accessInfo map[string]string) (*sftpTarget, error) {
	host, user, remotePath := accessInfo["host"], accessInfo["user"], accessInfo["remotePath"]
	if host == "" || user == "" || remotePath == "" {
		return nil, errors.New("missing required accessInfo keys: host, user, remotePath")
	}
	port := accessInfo["port"]
	if port == "" {
		port = "22"
	}

	auth, err := sshAuth(accessInfo["privateKey"], accessInfo["password"])
	if err != nil {
		return nil, err
	}
	checkHostKey, err := hostKeyCallback(accessInfo["hostKey"])
	if err != nil {
		return nil, err
	}

	return &sftpTarget{
		addr:       net.JoinHostPort(host, port),
		remotePath: remotePath,
		config: &ssh.ClientConfig{
			User:            user,
			Auth:            []ssh.AuthMethod{auth},
			HostKeyCallback: checkHostKey,
			Timeout:         sftpHandshakeTimeout,
		},
	}, nil
}

func sshAuth(privateKey, password string) (ssh.AuthMethod, error) {
	if privateKey != "" {
		keyBytes, err := base64.StdEncoding.DecodeString(privateKey)
		if err != nil {
			keyBytes = []byte(privateKey)
		}
		signer, err := ssh.ParsePrivateKey(keyBytes)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		return ssh.PublicKeys(signer), nil
	}
	if password != "" {
		return ssh.Password(password), nil
	}
	return nil, errors.New("no auth method provided; set password or privateKey in accessInfo")
}

// hostKeyCallback pins the server key when one is configured.
func hostKeyCallback(authorizedKey string) (ssh.HostKeyCallback, error) {
	if strings.TrimSpace(authorizedKey) == "" {
		logger.Warn("sftp host key not configured; server identity is not verified")
		return ssh.InsecureIgnoreHostKey(), nil
	}
	pub, _, _, _, err := ssh.ParseAuthorizedKey([]byte(authorizedKey))
	if err != nil {
		return nil, fmt.Errorf("parse host key: %w", err)
	}
	return ssh.FixedHostKey(pub), nil
}

// dial opens an SSH connection that honours ctx for the TCP dial and, when ctx
// has one, its deadline for the whole session.
func (t *sftpTarget) dial(ctx context.Context) (*ssh.Client, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", t.addr)
	if err != nil {
		return nil, fmt.Errorf("dial tcp %s: %w", t.addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	clientConn, chans, reqs, err := ssh.NewClientConn(conn, t.addr, t.config)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s: %w", t.addr, err)
	}
	return ssh.NewClient(clientConn, chans, reqs), nil
}

// UploadToSFTPWithCreds uploads reader to accessInfo["remotePath"] over SFTP.
// The file is written beside the target as "<remotePath>.part" and renamed
// once complete.
func UploadToSFTPWithCreds(ctx context.Context, accessInfo map[string]string, reader io.Reader) error {
	target, err := parseSFTPAccess(accessInfo)
	if err != nil {
		return err
	}
	sshClient, err := target.dial(ctx)
	if err != nil {
		return err
	}
	defer sshClient.Close()

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		return fmt.Errorf("create sftp client: %w", err)
	}
	defer client.Close()

	if err := putAtomic(client, target.remotePath, reader); err != nil {
		return err
	}
	logger.Debugf("published '%s' to %s", target.remotePath, target.addr)
	return nil
}

func putAtomic(client *sftp.Client, remotePath string, reader io.Reader) error {
	if dir := path.Dir(remotePath); dir != "." && dir != "/" {
		if err := client.MkdirAll(dir); err != nil {
			return fmt.Errorf("ensure remote dir %s: %w", dir, err)
		}
	}

	partial := remotePath + ".part"
	f, err := client.Create(partial)
	if err != nil {
		return fmt.Errorf("create remote file %s: %w", partial, err)
	}
	if _, err := f.ReadFrom(reader); err != nil {
		f.Close()
		client.Remove(partial)
		return fmt.Errorf("copy to remote file %s: %w", partial, err)
	}
	if err := f.Close(); err != nil {
		client.Remove(partial)
		return fmt.Errorf("close remote file %s: %w", partial, err)
	}
	if err := client.PosixRename(partial, remotePath); err != nil {
		client.Remove(partial)
		return fmt.Errorf("rename remote file %s: %w", remotePath, err)
	}
	return nil
}
