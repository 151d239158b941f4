package admin

import (
	"bufio"
	"fmt"
	"io"
	"log"
)

// ServeReader 逐行读取命令并把结果写到 w，直到 quit 或输入结束
func (c *Console) ServeReader(r io.Reader, w io.Writer) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		quit := c.Apply(scanner.Text(), func(out string) error {
			_, err := fmt.Fprintln(w, out)
			return err
		})
		if quit {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		log.Printf("⚠️ 读取管理命令失败: %v", err)
	}
}
