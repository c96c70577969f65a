package main

// General API documentation for swaggo. Run `swag init -g cmd/textgend/docs.go -o docs` to regenerate.
//
// @title           textgen API
// @version         1.0
// @description     HTTP API for prompt continuation and conversations with a local causal language model.
//
// @contact.name   textgen maintainers
//
// @license.name   MIT
// @license.url    https://opensource.org/licenses/MIT
//
// @BasePath  /
//
// @schemes http
