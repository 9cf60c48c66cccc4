/*
包 database 提供基于 GORM 的数据库打开与连接池管理。

Open 按驱动名（sqlite、postgres、mysql）选择方言并创建 PoolManager；
SQLite 会自动创建数据库文件所在目录。PoolManager 负责连接池参数、
探活、统计与事务执行，被 storage 包的 SQL 后端使用。
*/
package database
