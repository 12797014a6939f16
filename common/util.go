package common

import (
	"context"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// GetAssetAbsPath resolves a file under the package assets directory. The
// lookup is relative to this source file so tests find the circuits no matter
// where they run from.
func GetAssetAbsPath(fileName string) (string, error) {
	_, src, _, ok := runtime.Caller(0)
	if !ok {
		return "", fmt.Errorf("failed to locate the caller source file")
	}
	path := filepath.Join(filepath.Dir(src), "assets", fileName)
	if _, err := os.Stat(path); err != nil {
		return "", err
	}
	return path, nil
}

func GetAsset(fileName string) (string, error) {
	path, err := GetAssetAbsPath(fileName)
	if err != nil {
		return "", err
	}
	return ReadFile(path)
}

func ReadFile(filePath string) (string, error) {
	b, err := os.ReadFile(filePath)
	return string(b), err
}

// ContainsStatementName reports whether s names the same statement or gate as
// one of list, ignoring case and separators.
func ContainsStatementName(s string, list []string) bool {
	want := NormalizeStatementName(s)
	return slices.ContainsFunc(list, func(c string) bool {
		return NormalizeStatementName(c) == want
	})
}

var statementNameCleaner = strings.NewReplacer("_", "", "-", "")

func NormalizeStatementName(s string) string {
	return strings.TrimSuffix(statementNameCleaner.Replace(strings.ToLower(s)), "statement")
}

var (
	hostPattern = regexp.MustCompile(`^([0-9a-zA-Z_-]|\.)+$`)
	portPattern = regexp.MustCompile(`^[0-9]+$`)
)

func ValidAddress(host, port string) (string, error) {
	if !hostPattern.MatchString(host) {
		return "", fmt.Errorf("%s is an invalid host name", host)
	}
	if !portPattern.MatchString(port) {
		return "", fmt.Errorf("%s is an invalid port number", port)
	}
	num, err := strconv.Atoi(port)
	if err != nil {
		return "", err
	}
	if num > 65535 {
		return "", fmt.Errorf("%d is not a port number within the allowed range", num)
	}
	return net.JoinHostPort(host, port), nil
}

// TODO: move to grpc.NewClient, DialContext is deprecated
func GRPCConnection(address string, timeout time.Duration, block bool) (*grpc.ClientConn, error) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	opts := []grpc.DialOption{grpc.WithTransportCredentials(insecure.NewCredentials())}
	if block {
		opts = append(opts, grpc.WithBlock())
	}
	return grpc.DialContext(ctx, address, opts...)
}

// IsDirWritable probes dirPath with a scratch file. Stat alone is not enough
// on bind mounts, where the mode bits can lie about what a write will do.
func IsDirWritable(dirPath string) error {
	info, err := os.Stat(dirPath)
	switch {
	case os.IsNotExist(err):
		return fmt.Errorf("directory does not exist: %s", dirPath)
	case err != nil:
		return err
	case !info.IsDir():
		return fmt.Errorf("%s is not a directory", dirPath)
	}
	probe, err := os.CreateTemp(dirPath, "probe-*.tmp")
	if err != nil {
		return fmt.Errorf("write permission denied for directory: %s", dirPath)
	}
	probe.Close()
	if err := os.Remove(probe.Name()); err != nil {
		return fmt.Errorf("failed to remove temporary file: %s", err)
	}
	return nil
}

func ReadSettingsFile(settingsPath string) (string, error) {
	b, err := os.ReadFile(settingsPath)
	if err == nil {
		return string(b), nil
	}
	zap.L().Error(fmt.Sprintf("failed to read settings file/path:%s/reason:%s", settingsPath, err))
	if abs, aerr := filepath.Abs(settingsPath); aerr == nil {
		zap.L().Debug(fmt.Sprintf("absolute path:%s", abs))
	}
	return "", err
}
