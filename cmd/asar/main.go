// Command asar packs directories into asar archives and extracts them.
package main

func main() {
	Execute()
}
