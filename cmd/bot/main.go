package main

import (
	"github.com/sirupsen/logrus"

	protocol "github.com/Deer-Spangle/hoardbooru-bot/protocal"
)

func main() {
	err := protocol.ServeBot()
	if err != nil {
		logrus.Println(err)
	}
}
