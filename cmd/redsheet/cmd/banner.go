package cmd

import (
	"fmt"
)

const banner = `
  _____          _  _____ _               _
 |  __ \        | |/ ____| |             | |
 | |__) |___  __| | (___ | |__   ___  ___| |_
 |  _  // _ \/ _` + "`" + ` |\___ \| '_ \ / _ \/ _ \ __|
 | | \ \  __/ (_| |____) | | | |  __/  __/ |_
 |_|  \_\___|\__,_|_____/|_| |_|\___|\___|\__|

`

func printBanner() {
	fmt.Printf("\x1b[31m%s\x1b[0m", banner)
	fmt.Printf("\x1b[32m  Pentest Engagement Workspace - Version %s\x1b[0m\n\n", Version)
}
