package delivery

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// ErrTransfer is returned when an artifact cannot be delivered.
var ErrTransfer = errors.New("transfer failed")

// Config holds the SSH connection settings for an SFTPClient.
type Config struct {
	Host       string
	Port       int
	User       string
	Password   string
	PrivateKey string // PEM key material; takes precedence over Password
	KnownHosts string // Path to a known_hosts file; empty accepts any host key
}

// session is one open SFTP channel plus the transport it runs on.
type session struct {
	client *sftp.Client
	close  func() error
}

// SFTPClient uploads files over SFTP. It opens a fresh connection per upload.
type SFTPClient struct {
	addr    string
	config  *ssh.ClientConfig
	connect func(ctx context.Context) (*session, error)
}

// NewSFTPClient creates a new SFTP client. Authentication material and the
// known_hosts file are parsed up front.
func NewSFTPClient(cfg Config) (*SFTPClient, error) {
	auth, err := authMethods(cfg)
	if err != nil {
		return nil, err
	}

	hostKeyCallback := ssh.InsecureIgnoreHostKey()
	if cfg.KnownHosts != "" {
		hostKeyCallback, err = knownhosts.New(cfg.KnownHosts)
		if err != nil {
			return nil, fmt.Errorf("failed to load known hosts %s: %w", cfg.KnownHosts, err)
		}
	}

	c := &SFTPClient{
		addr: hostAddr(cfg),
		config: &ssh.ClientConfig{
			User:            cfg.User,
			Auth:            auth,
			HostKeyCallback: hostKeyCallback,
		},
	}
	c.connect = c.dial
	return c, nil
}

// NewUnavailableClient returns a client for cfg whose uploads all fail with
// reason wrapped in ErrTransfer. It stands in for a client whose settings
// could not be parsed.
func NewUnavailableClient(cfg Config, reason error) *SFTPClient {
	c := &SFTPClient{addr: hostAddr(cfg)}
	c.connect = func(context.Context) (*session, error) {
		return nil, reason
	}
	return c
}

func hostAddr(cfg Config) string {
	port := cfg.Port
	if port == 0 {
		port = 22
	}
	return net.JoinHostPort(cfg.Host, strconv.Itoa(port))
}

func authMethods(cfg Config) ([]ssh.AuthMethod, error) {
	if cfg.PrivateKey != "" {
		signer, err := ssh.ParsePrivateKey([]byte(cfg.PrivateKey))
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key: %w", err)
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}
	return []ssh.AuthMethod{ssh.Password(cfg.Password)}, nil
}

// Addr returns the host:port the client dials.
func (c *SFTPClient) Addr() string {
	return c.addr
}

func (c *SFTPClient) dial(ctx context.Context) (*session, error) {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", c.addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s: %w", c.addr, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, c.addr, c.config)
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ssh handshake with %s failed: %w", c.addr, err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	sftpClient, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, fmt.Errorf("failed to start sftp session: %w", err)
	}

	return &session{
		client: sftpClient,
		close: func() error {
			return errors.Join(sftpClient.Close(), sshClient.Close())
		},
	}, nil
}

// Upload copies localPath to remotePath, replacing any existing file.
// Every failure wraps ErrTransfer.
func (c *SFTPClient) Upload(ctx context.Context, localPath, remotePath string) error {
	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("%w: failed to open %s: %w", ErrTransfer, localPath, err)
	}
	defer local.Close()

	s, err := c.connect(ctx)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrTransfer, err)
	}
	defer func() { _ = s.close() }()

	remote, err := s.client.OpenFile(remotePath, os.O_WRONLY|os.O_CREATE|os.O_TRUNC)
	if err != nil {
		return fmt.Errorf("%w: failed to open remote file %s: %w", ErrTransfer, remotePath, err)
	}

	if _, err := io.Copy(remote, local); err != nil {
		_ = remote.Close()
		return fmt.Errorf("%w: failed to write remote file %s: %w", ErrTransfer, remotePath, err)
	}
	if err := remote.Close(); err != nil {
		return fmt.Errorf("%w: failed to close remote file %s: %w", ErrTransfer, remotePath, err)
	}
	return nil
}

// TargetPath returns the remote path of the chunked artifact for stem under base.
func TargetPath(base, stem string) string {
	return strings.TrimRight(base, "/") + "/" + stem + "_chunked.md"
}
