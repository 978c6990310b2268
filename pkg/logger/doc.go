/*---------------------------------------------------------------------------------------------
 *  Copyright (c) Microsoft Corporation. All rights reserved.
 *  Licensed under the MIT License. See LICENSE in the project root for license information.
 *--------------------------------------------------------------------------------------------*/

/*
Package logger builds logr loggers backed by zap for programs that embed a DAP server.

Log output goes to stderr by default, since the protocol usually owns stdout. The initial
level comes from the DAPSERVER_LOG_LEVEL environment variable (default "info").

Programs that parse their command line with pflag can let users change the level:

	log := logger.New("my-adapter")
	defer log.Flush()

	fs := pflag.NewFlagSet("my-adapter", pflag.ExitOnError)
	log.AddLevelFlag(fs) // registers -v/--verbosity
	_ = fs.Parse(os.Args[1:])

	server := dap.NewServer(os.Stdin, os.Stdout, dap.ServerConfig{Logger: log.Logger})

GetLevelFlagValue returns the registered flag value, e.g. to check what the user asked for.
Verbosity 1 (or "debug") logs every frame the server sends and receives.
*/
package logger
