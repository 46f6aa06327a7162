package main

import "github.com/dnitsch/cognito-aws-auth/cmd"

func main() {
	cmd.Execute()
}
