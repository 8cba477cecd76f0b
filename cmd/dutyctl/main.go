package main

import "github.com/SoarinFerret/DutyWarden/cmd/dutyctl/arg"

func main() {
	arg.Execute()
}
