package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"text/tabwriter"
	"time"

	"gemini-proxy/internal/config"
	appRedis "gemini-proxy/internal/redis"
	"gemini-proxy/internal/storage"

	"go.uber.org/zap"
)

func usage(out io.Writer) {
	fmt.Fprintln(out, "使用方法:")
	fmt.Fprintln(out, "  ./admin list-uploads - 列出上传目录中残留的临时文件")
	fmt.Fprintln(out, "  ./admin sweep-uploads [age] - 删除早于 age 的临时文件 (默认 UPLOAD.SWEEP_AGE)")
	fmt.Fprintln(out, "  ./admin show-session <sessionID> - 显示对话历史")
	fmt.Fprintln(out, "  ./admin reset-session <sessionID> - 清空对话历史")
}

func main() {
	if len(os.Args) < 2 {
		usage(os.Stdout)
		os.Exit(1)
	}

	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("无法加载配置: %v", err)
	}

	if err := run(context.Background(), cfg, os.Args[1:], os.Stdout); err != nil {
		log.Fatalf("%s 执行失败: %v", os.Args[1], err)
	}
}

// run 执行一条管理命令，结果写入 out。
func run(ctx context.Context, cfg config.Config, args []string, out io.Writer) error {
	switch args[0] {
	case "list-uploads":
		return listUploads(ctx, cfg, out)

	case "sweep-uploads":
		age := cfg.Upload.SweepAge
		if len(args) > 1 {
			parsed, err := time.ParseDuration(args[1])
			if err != nil {
				return fmt.Errorf("无效的时长 %q: %w", args[1], err)
			}
			age = parsed
		}
		return sweepUploads(ctx, cfg, age, out)

	case "show-session", "reset-session":
		if len(args) < 2 {
			return errors.New("需要指定会话ID")
		}
		if cfg.Session.Backend != "redis" {
			return errors.New("内存会话只存在于服务进程中，请将 SESSION.BACKEND 设置为 redis")
		}
		if args[0] == "show-session" {
			return showSession(ctx, cfg, args[1], out)
		}
		return resetSession(ctx, cfg, args[1], out)

	default:
		usage(out)
		return fmt.Errorf("未知命令: %s", args[0])
	}
}

func listUploads(ctx context.Context, cfg config.Config, out io.Writer) error {
	files, err := storage.NewLocalFileStore(cfg.Upload, zap.NewNop())
	if err != nil {
		return err
	}
	entries, err := files.List(ctx)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		fmt.Fprintf(out, "目录 %s 中没有临时文件\n", files.Dir())
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSIZE\tMODIFIED")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", e.Name, e.Size, e.ModTime.Format(time.RFC3339))
	}
	return tw.Flush()
}

func sweepUploads(ctx context.Context, cfg config.Config, age time.Duration, out io.Writer) error {
	files, err := storage.NewLocalFileStore(cfg.Upload, zap.NewNop())
	if err != nil {
		return err
	}
	removed, err := files.Sweep(ctx, age)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "已删除 %d 个早于 %s 的临时文件\n", removed, age)
	return nil
}

func showSession(ctx context.Context, cfg config.Config, sessionID string, out io.Writer) error {
	sessions, closeSessions, err := appRedis.OpenSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	messages, err := sessions.Load(ctx, sessionID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "会话 %s 共 %d 条消息\n", sessionID, len(messages))
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(messages)
}

func resetSession(ctx context.Context, cfg config.Config, sessionID string, out io.Writer) error {
	sessions, closeSessions, err := appRedis.OpenSessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeSessions()

	if err := sessions.Delete(ctx, sessionID); err != nil {
		return err
	}
	fmt.Fprintf(out, "会话 %s 已清空\n", sessionID)
	return nil
}
