package media

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/h2non/filetype"

	"gemini-proxy/internal/gentypes"
)

// headerSize is the number of leading bytes filetype needs to match every known signature.
const headerSize = 262

// SniffMIME 读取文件头并识别真实类型。无法识别时返回空字符串 (纯文本类格式没有魔数)。
func SniffMIME(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("打开文件失败 '%s': %w", path, err)
	}
	defer f.Close()

	head := make([]byte, headerSize)
	n, err := io.ReadFull(f, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("读取文件头失败 '%s': %w", path, err)
	}

	kind, err := filetype.Match(head[:n])
	if err != nil || kind == filetype.Unknown {
		return "", nil
	}
	return kind.MIME.Value, nil
}

// ContentMatches 判断识别出的类型是否与模态相符。
// sniffed 为空表示无法识别，此时信任声明的类型。
// text/* 没有魔数，开头的普通字符可能碰巧命中 "BM"、"MZ" 之类的短签名，因此不做检查。
func ContentMatches(m gentypes.Modality, declared, sniffed string) bool {
	if sniffed == "" || strings.HasPrefix(gentypes.NormalizeMIME(declared), "text/") {
		return true
	}
	switch m {
	case gentypes.ImageModality:
		return strings.HasPrefix(sniffed, "image/")
	case gentypes.AudioModality:
		// webm 容器统一被识别为 video/webm
		return strings.HasPrefix(sniffed, "audio/") || sniffed == "video/webm"
	case gentypes.DocumentModality:
		return sniffed == "application/pdf"
	default:
		return false
	}
}
