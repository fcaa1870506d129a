/*
 * @author: sun977
 * @date: 2025.10.21
 * @description: 主程序入口
 */

package main

func main() {
	Execute()
}
