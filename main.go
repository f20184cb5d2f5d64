// 命令行入口：安装 SIGINT/SIGTERM 取消，交给 cli 执行子命令。
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"lotto-crawler/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cli.Execute(ctx)
}
