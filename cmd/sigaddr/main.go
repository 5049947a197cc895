// Command sigaddr resolves signature-based static addresses in module images.
package main

func main() {
	Execute()
}
