package main

import (
	"os"

	"github.com/zeromicro/go-zero/core/logx"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		logx.Close()
		os.Exit(1)
	}
	logx.Close()
}
