package modlist

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
)

type SFTPConfig struct {
	Host       string
	Port       int
	User       string
	Password   string
	RemoteFile string
}

// Download fetches the remote server ini to localPath over SFTP. The transfer
// itself is outside the update-detection core; it only exists so a run on a
// fresh machine can obtain the mod list at all.
func Download(cfg SFTPConfig, localPath string, log *slog.Logger) error {
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	log.Info("downloading server ini", "addr", addr, "remote", cfg.RemoteFile, "local", localPath)

	sshCfg := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.Password(cfg.Password)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         15 * time.Second,
	}
	conn, err := ssh.Dial("tcp", addr, sshCfg)
	if err != nil {
		return fmt.Errorf("modlist: ssh dial %s: %w", addr, err)
	}
	defer conn.Close()

	client, err := sftp.NewClient(conn)
	if err != nil {
		return fmt.Errorf("modlist: sftp session: %w", err)
	}
	defer client.Close()

	src, err := client.Open(cfg.RemoteFile)
	if err != nil {
		return fmt.Errorf("modlist: open remote %s: %w", cfg.RemoteFile, err)
	}
	defer src.Close()

	dst, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("modlist: create %s: %w", localPath, err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		return fmt.Errorf("modlist: copy %s: %w", cfg.RemoteFile, err)
	}
	return nil
}

// SFTPSource downloads the server ini before parsing it.
type SFTPSource struct {
	SFTP      SFTPConfig
	LocalPath string
	Log       *slog.Logger
}

func (s SFTPSource) WorkshopIDs() ([]string, error) {
	if err := Download(s.SFTP, s.LocalPath, s.Log); err != nil {
		return nil, err
	}
	return FileSource{Path: s.LocalPath}.WorkshopIDs()
}
